package tenant

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Filter returns the MongoDB filter clauses for this scope.
// Every tenant-owned collection query starts from this.
func (s *Scope) Filter() bson.M {
	return bson.M{
		"companyId":  s.CompanyID,
		"locationId": s.LocationID,
	}
}

// FilterWith returns the scope filter merged with extra clauses.
// Extra clauses never override the scope pair.
func (s *Scope) FilterWith(extra bson.M) bson.M {
	f := s.Filter()
	for k, v := range extra {
		if k == "companyId" || k == "locationId" {
			continue
		}
		f[k] = v
	}
	return f
}

// Indexes returns the standard index definitions for tenant-owned
// collections. Callers append their collection-specific keys.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "companyId", Value: 1}, {Key: "locationId", Value: 1}}},
	}
}
