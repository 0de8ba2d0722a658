package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_CloneDeepCopiesPayload(t *testing.T) {
	doc := New("doc-1", OriginEmail, map[string]interface{}{
		"vendor": map[string]interface{}{"name": "acme"},
		"lines":  []interface{}{map[string]interface{}{"qty": 2}},
	})
	clone := doc.Clone()

	clone.Payload["vendor"].(map[string]interface{})["name"] = "other"
	clone.Payload["lines"].([]interface{})[0].(map[string]interface{})["qty"] = 9

	assert.EqualValues(t, "acme", doc.Payload["vendor"].(map[string]interface{})["name"])
	assert.EqualValues(t, 2, doc.Payload["lines"].([]interface{})[0].(map[string]interface{})["qty"])
}

func TestNew_DerivesStableID(t *testing.T) {
	first := New("", OriginEmail, map[string]interface{}{"subject": "invoice 7781"})
	second := New("", OriginEmail, map[string]interface{}{"subject": "invoice 7781"})
	assert.NotEmpty(t, first.ID)
	assert.EqualValues(t, first.ID, second.ID)

	other := New("", OriginEmail, map[string]interface{}{"subject": "invoice 7782"})
	assert.NotEqual(t, first.ID, other.ID)
}
