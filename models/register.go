/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package models

import (
	"github.com/suparena/mfgstore/registry"
)

func init() {
	// Key extractors
	registry.RegisterKeyFunc[Product](func(p Product) string {
		if p.SkuID == nil {
			return ""
		}
		return *p.SkuID
	})

	registry.RegisterKeyFunc[RawMaterial](func(m RawMaterial) string {
		if m.RawMaterialID == nil {
			return ""
		}
		return *m.RawMaterialID
	})

	registry.RegisterKeyFunc[ProductionBatch](func(b ProductionBatch) string {
		if b.BatchNumber == nil {
			return ""
		}
		return *b.BatchNumber
	})

	// Table maps
	registry.RegisterTableMap[Product](registry.TableMap{
		Table:     "products",
		KeyColumn: "sku_id",
		Channel:   "mfg_products_changes",
		OrderBy:   "order_index, sku_id",
		Keys: map[string]string{
			"PK": "PRODUCT#{SkuID}",
			"SK": "PRODUCT#{SkuID}",
		},
	})

	registry.RegisterTableMap[RawMaterial](registry.TableMap{
		Table:     "raw_materials",
		KeyColumn: "raw_material_id",
		Channel:   "mfg_raw_materials_changes",
		OrderBy:   "raw_material_id",
		Keys: map[string]string{
			"PK": "MATERIAL#{RawMaterialID}",
			"SK": "MATERIAL#{RawMaterialID}",
		},
	})

	registry.RegisterTableMap[ProductionBatch](registry.TableMap{
		Table:     "production_batches",
		KeyColumn: "batch_number",
		Channel:   "mfg_production_batches_changes",
		OrderBy:   "created_at, batch_number",
		Keys: map[string]string{
			"PK": "BATCH#{BatchNumber}",
			"SK": "BATCH#{BatchNumber}",
		},
	})
}
