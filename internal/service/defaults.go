package service

import (
	"click-collect/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultCatalog is the demo assortment of the tracking page, used until the
// admin tool publishes products.
func DefaultCatalog() []models.Product {
	return []models.Product{
		{
			ID:          "prd-panier-legumes",
			SKU:         "PAN-LEG-01",
			Name:        "Panier de légumes de saison",
			Description: "Sélection hebdomadaire de producteurs locaux.",
			Price:       decimal.RequireFromString("18.50"),
			Stock:       12,
		},
		{
			ID:          "prd-pain-levain",
			SKU:         "BOU-PAI-02",
			Name:        "Pain au levain",
			Description: "Miche de 800 g cuite au feu de bois.",
			Price:       decimal.RequireFromString("4.20"),
			Stock:       30,
		},
		{
			ID:          "prd-fromage-comte",
			SKU:         "FRO-COM-03",
			Name:        "Comté 18 mois",
			Description: "Portion de 250 g.",
			Price:       decimal.RequireFromString("7.90"),
			Stock:       8,
		},
		{
			ID:          "prd-jus-pomme",
			SKU:         "EPI-JUS-04",
			Name:        "Jus de pomme artisanal",
			Description: "Bouteille de 1 L.",
			Price:       decimal.RequireFromString("3.60"),
			Stock:       0,
		},
	}
}
