// internal/matching/scorer/schema.go
package scorer

// Response schemas for the scoring oracle. Anything that fails these is
// classified as a bad response, never cached.

const singleResponseSchema = `{
	"type": "object",
	"required": ["score", "factors"],
	"properties": {
		"score":   {"type": "number"},
		"factors": {"type": "object"}
	}
}`

const batchResponseSchema = `{
	"type": "object",
	"required": ["results"],
	"properties": {
		"results": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["scholarship_id", "score"],
				"properties": {
					"scholarship_id": {"type": "string"},
					"score":          {"type": "number"},
					"factors":        {"type": "object"}
				}
			}
		}
	}
}`
