/*
Package ddb implements the RemoteSource contract on AWS DynamoDB.

Partition and sort keys are derived from macro templates registered per
record type ("PRODUCT#{SkuID}" expands against the record's own fields), so
every entity shares the same key-shaping code. Writes read the item back so
canonical records reflect what the table actually holds.

Realtime change events come from DynamoDB Streams: Changes polls the table's
open shards, converts stream images into typed records, and maps
INSERT/MODIFY/REMOVE onto the store's insert/update/delete events. The table
needs a stream with the NEW_AND_OLD_IMAGES view type.
*/
package ddb
