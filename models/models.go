/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package models

import "github.com/go-openapi/strfmt"

// Batch status values accepted by the schema layer.
const (
	BatchPending    = "pending"
	BatchInProgress = "in_progress"
	BatchCompleted  = "completed"
	BatchHalted     = "halted"
)

// Product is a finished manufactured good, identified by its SKU.
type Product struct {

	// Unique stock-keeping identifier, e.g. "SKU0001".
	// Required: true
	SkuID *string `json:"sku_id" validate:"required,sku_id"`

	// Display name of the product.
	// Required: true
	Name *string `json:"name" validate:"required,min=1"`

	// Commercial category, e.g. "structural".
	Category string `json:"category,omitempty"`

	// Product type within the category.
	ProductType string `json:"product_type,omitempty"`

	// Free-form dimension description, e.g. "120x60x3000 mm".
	Dimensions string `json:"dimensions,omitempty"`

	// Unit weight in kilograms.
	WeightKg float64 `json:"weight_kg,omitempty" validate:"gte=0"`

	// Base material, e.g. "S235JR steel".
	Material string `json:"material,omitempty"`

	// Strength grade or rating, if applicable.
	StrengthGrade string `json:"strength_grade,omitempty"`

	// Units currently on hand.
	// Required: true
	CurrentStock *int64 `json:"current_stock" validate:"required,gte=0"`

	// Reorder threshold.
	MinimumStock int64 `json:"minimum_stock,omitempty" validate:"gte=0"`

	// Unit price.
	// Required: true
	Price *float64 `json:"price" validate:"required,gte=0"`

	// Whether the product is currently offered.
	// Required: true
	IsActive *bool `json:"is_active" validate:"required"`

	// Display position persisted by grid reordering.
	OrderIndex int64 `json:"order_index,omitempty" validate:"gte=0"`

	// Denormalized material usage; copies, not live references.
	Materials []ProductMaterialUsage `json:"materials,omitempty" validate:"omitempty,dive"`

	// Timestamp when the record was created (server-assigned).
	// Format: date-time
	CreatedAt *strfmt.DateTime `json:"created_at,omitempty"`

	// Timestamp of the last update (server-assigned).
	// Format: date-time
	UpdatedAt *strfmt.DateTime `json:"updated_at,omitempty"`
}

// RawMaterial is an input material tracked for procurement and costing.
type RawMaterial struct {

	// Unique material identifier, e.g. "RM0001".
	// Required: true
	RawMaterialID *string `json:"raw_material_id" validate:"required,raw_material_id"`

	// Display name of the material.
	// Required: true
	Name *string `json:"name" validate:"required,min=1"`

	// Unit of measure.
	// Required: true
	Unit *string `json:"unit" validate:"required,measure_unit"`

	// Cost per unit of measure.
	// Required: true
	CostPerUnit *float64 `json:"cost_per_unit" validate:"required,gte=0"`

	// Quantity currently on hand, in Unit.
	// Required: true
	CurrentStock *float64 `json:"current_stock" validate:"required,gte=0"`

	// Reorder threshold, in Unit.
	MinimumStock float64 `json:"minimum_stock,omitempty" validate:"gte=0"`

	// Preferred supplier.
	Supplier string `json:"supplier,omitempty"`

	// Format: date-time
	CreatedAt *strfmt.DateTime `json:"created_at,omitempty"`

	// Format: date-time
	UpdatedAt *strfmt.DateTime `json:"updated_at,omitempty"`
}

// ProductionBatch is one production run of a product.
type ProductionBatch struct {

	// Unique batch identifier, e.g. "BATCH0001".
	// Required: true
	BatchNumber *string `json:"batch_number" validate:"required,batch_number"`

	// SKU of the product being produced.
	// Required: true
	SkuID *string `json:"sku_id" validate:"required,sku_id"`

	// Format: date-time
	StartDate *strfmt.DateTime `json:"start_date,omitempty"`

	// Format: date-time
	EndDate *strfmt.DateTime `json:"end_date,omitempty"`

	// Units successfully produced.
	QuantityProduced int64 `json:"quantity_produced,omitempty" validate:"gte=0"`

	// Units scrapped.
	QuantityWasted int64 `json:"quantity_wasted,omitempty" validate:"gte=0"`

	// Production status.
	// Required: true
	Status *string `json:"status" validate:"required,oneof=pending in_progress completed halted"`

	// Operator notes.
	Notes string `json:"notes,omitempty"`

	// Format: date-time
	CreatedAt *strfmt.DateTime `json:"created_at,omitempty"`

	// Format: date-time
	UpdatedAt *strfmt.DateTime `json:"updated_at,omitempty"`
}

// ProductMaterialUsage links a product to a raw material with the quantity
// consumed per unit produced. The association carries denormalized copies of
// both identifiers.
type ProductMaterialUsage struct {

	// Required: true
	SkuID *string `json:"sku_id" validate:"required,sku_id"`

	// Required: true
	RawMaterialID *string `json:"raw_material_id" validate:"required,raw_material_id"`

	// Quantity of the material consumed per unit produced.
	// Required: true
	Quantity *float64 `json:"quantity" validate:"required,gt=0"`

	// Unit of measure for Quantity.
	// Required: true
	Unit *string `json:"unit" validate:"required,measure_unit"`
}
