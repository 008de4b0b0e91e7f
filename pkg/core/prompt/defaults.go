package prompt

// Prompt and schema identifiers used by the valuation core.
const (
	MarketMultiples       = "market.multiples"
	ExplainBullets        = "explain.bullets"
	ChatReply             = "chat.reply"
	MarketMultiplesSchema = "market_multiples"
)

const marketMultiplesTmpl = `Find current ARR revenue multiples for {{.Sector}} companies in {{.Region}} at {{.Stage}} stage in {{.Year}}. Return ONLY valid JSON:
{
  "multipleMid": number,
  "multipleLow": number,
  "multipleHigh": number,
  "asOf": "YYYY-MM",
  "shortRationale": "brief reason for this range"
}`

const explainBulletsTmpl = `Write exactly 3 concise bullet points explaining this valuation:
- ARR: {{.Revenue}}
- Sector: {{.Sector}}
- Region: {{.Region}}
- Stage: {{.Stage}}
- Multiple: {{.Multiple}} (range {{.Range}})
- Valuation: {{.Valuation}}

Focus on: why this multiple makes sense, market context, one key risk. Keep each bullet under 25 words.`

const chatReplyTmpl = `User said: "{{.Message}}"

Current valuation snapshot:
- ARR: {{.Revenue}}
- Multiple: {{.Multiple}}
- Valuation: {{.Valuation}}

Write a helpful reply (≤120 words) explaining what changed and the new valuation. Include {{.CurrencySymbol}} amounts. Be conversational and helpful.`

const marketMultiplesSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["multipleMid"],
  "properties": {
    "multipleMid": {"type": "number", "exclusiveMinimum": 0},
    "multipleLow": {"type": ["number", "null"]},
    "multipleHigh": {"type": ["number", "null"]},
    "asOf": {"type": ["string", "null"]},
    "shortRationale": {"type": ["string", "null"]}
  }
}`

func registerDefaults(r *Registry) error {
	defaults := []*Template{
		{
			ID:          MarketMultiples,
			Category:    "market",
			Description: "Search-grounded lookup of current ARR multiples for a sector, region and stage",
			User:        marketMultiplesTmpl,
			SchemaID:    MarketMultiplesSchema,
			Required:    []string{"Sector", "Region", "Stage", "Year"},
		},
		{
			ID:       ExplainBullets,
			Category: "explain",
			User:     explainBulletsTmpl,
			Required: []string{"Revenue", "Multiple", "Range", "Valuation"},
		},
		{
			ID:       ChatReply,
			Category: "chat",
			User:     chatReplyTmpl,
			Required: []string{"Message"},
		},
	}
	for _, t := range defaults {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return r.RegisterSchema(MarketMultiplesSchema, marketMultiplesSchemaJSON)
}
