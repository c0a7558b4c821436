package store

import "github.com/OTapias/alican-teca/models"

// SeedCatalog returns the static teak catalog. It doubles as the database
// seed and as the read fallback when Postgres is unreachable. Kept sorted
// by title so the fallback matches the primary ordering.
func SeedCatalog() []models.Product {
	return []models.Product{
		{
			ID:           "2",
			Title:        "Bandeja decorativa",
			Description:  "Bandeja de teca ideal para servir aperitivos o decorar la mesa.",
			Price:        120000,
			CurrencyCode: "COP",
			Image:        "/placeholder.png",
		},
		{
			ID:           "7",
			Title:        "Cuenco rústico",
			Description:  "Cuenco artesanal ideal para ensaladas o frutas.",
			Price:        75000,
			CurrencyCode: "COP",
			Image:        "/placeholder.png",
		},
		{
			ID:           "5",
			Title:        "Florero tallado",
			Description:  "Florero decorativo con detalles tallados a mano en madera de teca.",
			Price:        60000,
			CurrencyCode: "COP",
			Image:        "/placeholder.png",
		},
		{
			ID:           "3",
			Title:        "Juego de cubiertos",
			Description:  "Set de cubiertos de teca tallados a mano, incluye tenedor, cuchillo y cuchara.",
			Price:        80000,
			CurrencyCode: "COP",
			Image:        "/placeholder.png",
		},
		{
			ID:           "6",
			Title:        "Lámpara de mesa",
			Description:  "Lámpara de mesa con base de teca y pantalla de lino.",
			Price:        180000,
			CurrencyCode: "COP",
			Image:        "/placeholder.png",
		},
		{
			ID:           "8",
			Title:        "Marco para fotografías",
			Description:  "Marco de teca con vidrio frontal, perfecto para resaltar tus fotografías favoritas.",
			Price:        45000,
			CurrencyCode: "COP",
			Image:        "/placeholder.png",
		},
		{
			ID:           "1",
			Title:        "Mesa de comedor rectangular",
			Description:  "Mesa robusta de teca con acabado natural y capacidad para seis personas.",
			Price:        1500000,
			CurrencyCode: "COP",
			Image:        "/placeholder.png",
		},
		{
			ID:           "4",
			Title:        "Tabla para cortar",
			Description:  "Tabla resistente de teca perfecta para cortar y servir quesos o charcutería.",
			Price:        95000,
			CurrencyCode: "COP",
			Image:        "/placeholder.png",
		},
	}
}
