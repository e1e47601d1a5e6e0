package mongodb

import (
	"go.mongodb.org/mongo-driver/bson"
)

// SortField names one field in a multi-field sort
type SortField struct {
	Field      string
	Descending bool
}

// SortAscending creates an ascending sort option
func SortAscending(field string) bson.D {
	return bson.D{{Key: field, Value: 1}}
}

// SortMultiple creates a multi-field sort option in the given order
func SortMultiple(fields ...SortField) bson.D {
	sort := bson.D{}
	for _, f := range fields {
		if f.Descending {
			sort = append(sort, bson.E{Key: f.Field, Value: -1})
		} else {
			sort = append(sort, bson.E{Key: f.Field, Value: 1})
		}
	}
	return sort
}
