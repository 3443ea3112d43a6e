// Seeds the document store with business info and a starter menu so a
// fresh deployment renders something. Idempotent for the business
// singleton; menu items are inserted each run.
package main

import (
	"context"
	"flag"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/brasaviva/api/internal/config"
	"github.com/brasaviva/api/internal/enum"
	"github.com/brasaviva/api/internal/record"
	"github.com/brasaviva/api/internal/store/pgstore"
	"github.com/brasaviva/api/internal/syncer"
)

func main() {
	name := flag.String("name", "Brasa Viva", "Business name")
	phone := flag.String("phone", "0991 234 567", "Contact phone")
	address := flag.String("address", "Av. del Puerto 1423", "Street address")
	slogan := flag.String("slogan", "Fuego lento, sabor de siempre", "Slogan")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required for seeding")
	}

	ctx := context.Background()
	docs, err := pgstore.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("open pgstore")
	}
	defer docs.Close()

	adapter := syncer.New(docs, log)

	info := record.BusinessInfo{
		BusinessName: *name,
		Phone:        *phone,
		Address:      *address,
		Slogan:       *slogan,
	}
	if err := adapter.SaveBusinessInfo(ctx, info); err != nil {
		log.WithError(err).Fatal("save business info")
	}
	log.WithField("business", *name).Info("business info saved")

	items := []record.MenuItem{
		{
			Name:        "Asado de tira",
			Description: "Costillar a la brasa, chimichurri de la casa",
			Price:       decimal.NewFromFloat(12.50),
			Category:    enum.CategoryNoche,
			Available:   true,
		},
		{
			Name:        "Milanesa completa",
			Description: "Con papas rústicas y ensalada",
			Price:       decimal.NewFromFloat(8.90),
			Category:    enum.CategoryTarde,
			Available:   true,
		},
		{
			Name:        "Provoleta",
			Description: "Queso provolone fundido con orégano",
			Price:       decimal.NewFromFloat(6.00),
			Category:    enum.CategoryNoche,
			Available:   true,
		},
	}
	for _, item := range items {
		id, err := adapter.SaveMenuItem(ctx, item)
		if err != nil {
			log.WithError(err).WithField("item", item.Name).Fatal("save menu item")
		}
		log.WithFields(logrus.Fields{"item": item.Name, "id": id}).Info("menu item saved")
	}
}
