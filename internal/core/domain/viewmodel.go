package domain

// ViewModel is the generation ready projection of an EntitySchema handed to
// the template engine. Names keep the casing of the source schema.
type ViewModel struct {
	EntityName string      `json:"entityName"`
	TableName  string      `json:"tableName"`
	Primary    PrimaryView `json:"primary"`
	Fields     []FieldView `json:"fields"`
}

type PrimaryView struct {
	Name       string   `json:"name"`
	Strategy   Strategy `json:"strategy"`
	TargetType string   `json:"targetType"`
}

type FieldView struct {
	Name        string `json:"name"`
	StorageType string `json:"storageType"`
	TargetType  string `json:"targetType"`
	Length      *int   `json:"length,omitempty"`
	Nullable    bool   `json:"nullable"`
}

// Field returns the field view named name.
func (vm ViewModel) Field(name string) (FieldView, bool) {
	for _, f := range vm.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldView{}, false
}
