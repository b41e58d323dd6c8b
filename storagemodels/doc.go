/*
Package storagemodels defines the data structures shared by the datastore
backends and the entity stores.

ChangeEvent:
One entry on a change-notification channel, tagged with the operation it
represents:

	for ev := range changes {
	    switch ev.Type {
	    case storagemodels.ChangeInsert, storagemodels.ChangeUpdate:
	        // ev.New carries the full row
	    case storagemodels.ChangeDelete:
	        // ev.Key identifies the removed record
	    }
	}

SubscribeOptions:
Functional options configuring a feed:

	opts := []storagemodels.SubscribeOption{
	    storagemodels.WithBufferSize(128),
	    storagemodels.WithRetryBackoff(2 * time.Second),
	}
*/
package storagemodels
