package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Place is a grounding reference attached to a reply.
type Place struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Reply is the model's answer to one send, with any grounding references.
type Reply struct {
	Text   string
	Places []Place
}

// Client is the conversational boundary to the generative service. The
// full history is replayed on every send; nothing is dropped.
type Client interface {
	Send(ctx context.Context, instruction string, history []Message, text string, grounding bool) (*Reply, error)
}

// Gemini implements Client over a replayed-history chat with an optional
// Maps grounding tool.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a new chat client.
func NewGemini(client *genai.Client, modelName string) *Gemini {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &Gemini{client: client, model: modelName}
}

// Send replays the history under the system instruction and sends the new
// text. Grounding place references are read from the response metadata.
func (g *Gemini) Send(ctx context.Context, instruction string, history []Message, text string, grounding bool) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
	}
	if grounding {
		cfg.Tools = []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}}
	}

	replayed := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleModel {
			role = genai.RoleModel
		}
		replayed = append(replayed, genai.NewContentFromText(m.Text, role))
	}

	session, err := g.client.Chats.Create(ctx, g.model, cfg, replayed)
	if err != nil {
		return nil, fmt.Errorf("creating chat session: %w", err)
	}

	resp, err := session.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}

	reply := &Reply{Text: strings.TrimSpace(resp.Text())}
	if reply.Text == "" {
		return nil, fmt.Errorf("empty response from gemini")
	}
	reply.Places = groundingPlaces(resp)
	return reply, nil
}

// groundingPlaces collects place title/URI pairs from the response
// grounding metadata, preferring Maps chunks and falling back to web
// chunks.
func groundingPlaces(resp *genai.GenerateContentResponse) []Place {
	var places []Place
	for _, cand := range resp.Candidates {
		if cand == nil || cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil {
				continue
			}
			switch {
			case chunk.Maps != nil && chunk.Maps.URI != "":
				places = append(places, Place{Title: chunk.Maps.Title, URI: chunk.Maps.URI})
			case chunk.Web != nil && chunk.Web.URI != "":
				places = append(places, Place{Title: chunk.Web.Title, URI: chunk.Web.URI})
			}
		}
	}
	return places
}
