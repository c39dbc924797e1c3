package tenant

import "go.mongodb.org/mongo-driver/bson"

// ScopedFilter adds the client partition key to a MongoDB filter. Client-owned
// collections are queried through this so no lookup crosses a tenant boundary.
func ScopedFilter(clientID string, filter bson.M) bson.M {
	if filter == nil {
		filter = bson.M{}
	}
	if clientID != "" {
		filter["clientId"] = clientID
	}
	return filter
}

// ClientIndexKeys returns the leading index keys for client-scoped collections.
// Compound indexes on client collections start with clientId so queries stay
// within one client's partition.
func ClientIndexKeys(additionalKeys ...string) bson.D {
	keys := bson.D{{Key: "clientId", Value: 1}}
	for _, k := range additionalKeys {
		keys = append(keys, bson.E{Key: k, Value: 1})
	}
	return keys
}
