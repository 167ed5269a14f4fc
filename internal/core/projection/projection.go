// Package projection turns a validated entity schema into the view-model
// handed to code templates.
package projection

import (
	"strings"

	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
)

// Target types of the generated code.
const (
	TargetString  = "string"
	TargetNumber  = "number"
	TargetDate    = "Date"
	TargetBoolean = "boolean"
	TargetAny     = "any"
)

// Reserved timestamp fields are owned by the templates.
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

type typeMapping struct {
	storage string
	target  string
}

var typeTable = map[string]typeMapping{
	"string":    {storage: "varchar", target: TargetString},
	"varchar":   {storage: "varchar", target: TargetString},
	"text":      {storage: "text", target: TargetString},
	"int":       {storage: "int", target: TargetNumber},
	"integer":   {storage: "int", target: TargetNumber},
	"uuid":      {storage: "uuid", target: TargetString},
	"datetime":  {storage: "datetime", target: TargetDate},
	"timestamp": {storage: "datetime", target: TargetDate},
	"boolean":   {storage: "boolean", target: TargetBoolean},
}

// MapType returns the storage and target type of a domain type token.
// Unknown tokens keep their spelling as storage type and target "any".
func MapType(token string) (storage, target string) {
	if m, ok := typeTable[strings.ToLower(token)]; ok {
		return m.storage, m.target
	}
	if token == "" {
		return "varchar", TargetAny
	}
	return token, TargetAny
}

// PrimaryTargetType is numeric for increment keys and string otherwise.
func PrimaryTargetType(s domain.Strategy) string {
	if s == domain.StrategyIncrement {
		return TargetNumber
	}
	return TargetString
}

func reserved(name string) bool {
	return name == FieldCreatedAt || name == FieldUpdatedAt
}

// Project builds the view-model of s. Field order follows the declared
// property order.
func Project(s domain.EntitySchema) domain.ViewModel {
	fields := make([]domain.FieldView, 0, len(s.Properties))
	for _, p := range s.Properties {
		if reserved(p.Name) {
			continue
		}
		storage, target := MapType(p.Type)
		var length *int
		if p.Length != nil {
			l := *p.Length
			length = &l
		}
		fields = append(fields, domain.FieldView{
			Name:        p.Name,
			StorageType: storage,
			TargetType:  target,
			Length:      length,
			Nullable:    p.IsNullable(),
		})
	}

	return domain.ViewModel{
		EntityName: s.EntityName,
		TableName:  s.TableName,
		Primary: domain.PrimaryView{
			Name:       s.PrimaryKey.Name,
			Strategy:   s.PrimaryKey.Strategy,
			TargetType: PrimaryTargetType(s.PrimaryKey.Strategy),
		},
		Fields: fields,
	}
}

// LooksLikeSchema reports whether v has the shape of an entity schema:
// string names, a primary key with name and type, and a properties entry.
func LooksLikeSchema(v any) bool {
	switch s := v.(type) {
	case domain.EntitySchema:
		return true
	case *domain.EntitySchema:
		return s != nil
	case map[string]any:
		if _, ok := s["entityName"].(string); !ok {
			return false
		}
		if _, ok := s["tableName"].(string); !ok {
			return false
		}
		pk, ok := s["primaryKey"].(map[string]any)
		if !ok {
			return false
		}
		if _, ok := pk["name"].(string); !ok {
			return false
		}
		if _, ok := pk["type"].(string); !ok {
			return false
		}
		_, ok = s["properties"]
		return ok
	}
	return false
}
