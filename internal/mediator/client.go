package mediator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client wraps the text-generation capability used to phrase mediator
// messages. It never decides the price; callers pass the already-computed
// target and validate whatever comes back.
type Client struct {
	model *genai.GenerativeModel
}

func NewClient(ctx context.Context, apiKey, modelName string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	return &Client{model: model}, nil
}

type Turn struct {
	Sender  string
	Content string
}

// Input carries the context for one drafting call. FloorPrice/CeilPrice bound
// the suggestion; TargetPrice is the number the wording must carry.
type Input struct {
	Title         string
	Description   string
	PublicPrice   int
	SellerUrgency string
	BuyerUrgency  string
	TargetPrice   int
	FloorPrice    int
	CeilPrice     int
	Transcript    []Turn
}

type Suggestion struct {
	OfferPrice    int    `json:"offer_price"`
	Rationale     string `json:"rationale"`
	SellerMessage string `json:"seller_message"`
	BuyerMessage  string `json:"buyer_message"`
}

func (c *Client) Suggest(ctx context.Context, in Input) (*Suggestion, error) {
	var history strings.Builder
	for _, t := range in.Transcript {
		fmt.Fprintf(&history, "- %s: %s\n", t.Sender, t.Content)
	}

	prompt := fmt.Sprintf(`
You are an expert deal mediator helping a seller and a buyer close on a single item.
The price has already been decided by the platform; your job is only the wording.

**Item:**
- Title: %s
- Description: %s
- Public listing price: $%d

**Negotiation context:**
- Seller urgency: %s
- Buyer urgency: %s
- Decided counter-offer price: $%d (you MUST use exactly this number)
- The price must stay within [$%d, $%d]; never suggest anything outside it.

**Conversation so far:**
%s

**Instructions:**
1. Write a short, persuasive message to each party explaining why closing at the
   decided price is a good outcome for them.
2. Do not reveal either party's private limits or any internal numbers other
   than the decided price.
3. Respond with JSON only.

JSON schema:
{
  "offer_price": %d,
  "rationale": "one-paragraph neutral rationale",
  "seller_message": "message addressed to the seller",
  "buyer_message": "message addressed to the buyer"
}
`, in.Title, in.Description, in.PublicPrice, in.SellerUrgency, in.BuyerUrgency,
		in.TargetPrice, in.FloorPrice, in.CeilPrice, history.String(), in.TargetPrice)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from model")
	}

	txt, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response part type")
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(txt), &s); err != nil {
		return nil, fmt.Errorf("parse suggestion: %w", err)
	}
	return &s, nil
}
