/*
Package schema provides declarative shape validation for entity records.

A Validator[T] checks required fields, numeric ranges, enumerated value sets
and identifier patterns declared as validate tags on the record types, and
translates failures into errors.ValidationError values carrying the json
field name:

	products := schema.New[models.Product]("product")
	if err := products.Validate(rec); err != nil {
	    // err identifies the field and the violated constraint
	}

Validation runs on both inbound remote data (fetch responses, change-event
payloads, canonical write responses) and outbound writes, so a record is only
ever present in a store's collection after passing through this layer.
*/
package schema
