package domain

// Answer is the model reply to a customer question with the catalog
// products it recommends, in recommendation order.
type Answer struct {
	Message  string    `json:"message"`
	Products []Product `json:"products"`
}

// ProductNames returns the names of the recommended products.
func (a *Answer) ProductNames() []string {
	names := make([]string, 0, len(a.Products))
	for _, p := range a.Products {
		names = append(names, p.Name)
	}
	return names
}

// ProductIDs returns the ids of the recommended products.
func (a *Answer) ProductIDs() []string {
	ids := make([]string, 0, len(a.Products))
	for _, p := range a.Products {
		ids = append(ids, p.ID)
	}
	return ids
}
