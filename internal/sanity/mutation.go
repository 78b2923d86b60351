package sanity

// Document is a CMS document body. It must carry _id and _type.
type Document map[string]any

// Patch updates fields of an existing document.
type Patch struct {
	ID           string         `json:"id"`
	Set          map[string]any `json:"set,omitempty"`
	SetIfMissing map[string]any `json:"setIfMissing,omitempty"`
}

// Mutation is one operation of a mutate request. Exactly one field is set.
type Mutation struct {
	CreateIfNotExists Document `json:"createIfNotExists,omitempty"`
	Patch             *Patch   `json:"patch,omitempty"`
}

// CreateIfNotExists builds a mutation that is a no-op when doc already exists.
func CreateIfNotExists(doc Document) Mutation {
	return Mutation{CreateIfNotExists: doc}
}

// PatchDocument builds a patch mutation.
func PatchDocument(p Patch) Mutation {
	return Mutation{Patch: &p}
}

// Slug is the CMS slug object.
func Slug(current string) map[string]any {
	return map[string]any{"_type": "slug", "current": current}
}

// MutateResult is the response of a successful mutate request.
type MutateResult struct {
	TransactionID string `json:"transactionId"`
	Results       []struct {
		ID        string `json:"id"`
		Operation string `json:"operation"`
	} `json:"results"`
}

// Chunk splits mutations into consecutive batches of at most size items.
func Chunk(mutations []Mutation, size int) [][]Mutation {
	if size <= 0 {
		size = len(mutations)
	}
	var batches [][]Mutation
	for i := 0; i < len(mutations); i += size {
		end := min(i+size, len(mutations))
		batches = append(batches, mutations[i:end])
	}
	return batches
}
