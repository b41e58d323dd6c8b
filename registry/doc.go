/*
Package registry maintains the process-wide registration of record types.

Two registrations exist per entity type:

KeyFunc:
Extracts the primary identifier used to match records across fetch, update
and delete-event operations:

	registry.RegisterKeyFunc[models.Product](func(p models.Product) string {
	    if p.SkuID == nil {
	        return ""
	    }
	    return *p.SkuID
	})

TableMap:
Describes the remote table layout (table name, key column, change channel,
server ordering, DynamoDB key templates):

	registry.RegisterTableMap[models.Product](registry.TableMap{
	    Table:     "products",
	    KeyColumn: "sku_id",
	    Channel:   "mfg_products_changes",
	    OrderBy:   "order_index, sku_id",
	    Keys:      map[string]string{"PK": "PRODUCT#{SkuID}", "SK": "PRODUCT#{SkuID}"},
	})

Registration normally happens in the models package init; duplicate KeyFunc
registration panics to surface wiring mistakes early.
*/
package registry
