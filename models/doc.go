/*
Package models defines the manufacturing entity records synchronized by the
stores: products, raw materials, production batches, and the product/material
usage association.

Required fields use pointer types so an absent value is distinguishable from
a zero value, and timestamps use strfmt.DateTime so the RFC 3339 format is
enforced at decode time. The validate tags are interpreted by the schema
package.

The package init registers each entity's primary-key extractor and remote
table map with the registry package, so constructing a backend or a store for
one of these types needs no further wiring.
*/
package models
