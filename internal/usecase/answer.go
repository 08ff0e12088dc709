package usecase

import (
	"bytes"
	"context"
	"embed"
	"strings"
	"text/template"

	"medrag/internal/domain"
	"medrag/internal/port"
)

// NoQuestionReply is returned by Ask for a blank question.
const NoQuestionReply = "Please provide a question."

// SystemInstructions is the preamble of every answer prompt.
const SystemInstructions = `You are a professional medical knowledge assistant.
You will be given context from trusted medical documents.  You must answer
questions using ONLY that context.  If the information is not contained in
context, respond with "I don't have enough medical information".

Safety guidelines:
* Do NOT diagnose, prescribe, suggest dosages, or provide treatment plans.
* Do NOT give legal, financial or medical advice.
* Always encourage users to consult a qualified healthcare professional.
* Do NOT hallucinate details or make up sources.
* Keep the tone neutral, factual, and simple.

Answer in clear language; use bullet points where appropriate.`

//go:embed templates/answer_prompt.tmpl
var templateFS embed.FS

var answerPrompt = template.Must(
	template.New("answer_prompt.tmpl").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/answer_prompt.tmpl"),
)

// PassageRetriever is the retrieval step of the answer pipeline.
type PassageRetriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]domain.Passage, error)
}

// AnswerUseCase grounds model answers on retrieved passages.
type AnswerUseCase struct {
	retriever PassageRetriever
	llm       port.LLM
	tokenizer port.Tokenizer
	topK      int
	budget    int // tokens of context passed to the model (0 = unlimited)
}

func NewAnswerUseCase(retriever PassageRetriever, llm port.LLM, tokenizer port.Tokenizer, topK, budget int) *AnswerUseCase {
	return &AnswerUseCase{
		retriever: retriever,
		llm:       llm,
		tokenizer: tokenizer,
		topK:      topK,
		budget:    budget,
	}
}

// Ask answers a single question. The model is called once even when no
// passage was found, so it can reply that it lacks information.
func (u *AnswerUseCase) Ask(ctx context.Context, question string) (domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return domain.Answer{Question: question, Text: NoQuestionReply}, nil
	}

	prompt, passages, err := u.RenderPrompt(ctx, question)
	if err != nil {
		return domain.Answer{}, err
	}

	text, err := u.llm.Generate(ctx, prompt)
	if err != nil {
		return domain.Answer{}, err
	}

	return domain.Answer{
		Question: question,
		Text:     strings.TrimSpace(text),
		Sources:  passages,
	}, nil
}

// RenderPrompt retrieves context and renders the prompt without calling
// the model. It returns the passages that made it into the prompt.
func (u *AnswerUseCase) RenderPrompt(ctx context.Context, question string) (string, []domain.Passage, error) {
	if strings.TrimSpace(question) == "" {
		return "", nil, domain.ErrEmptyQuestion
	}

	passages, err := u.retriever.Retrieve(ctx, question, u.topK)
	if err != nil {
		return "", nil, err
	}
	passages = u.fitBudget(nonEmpty(passages))

	contexts := make([]string, len(passages))
	for i, p := range passages {
		contexts[i] = p.Text
	}

	var buf bytes.Buffer
	err = answerPrompt.Execute(&buf, struct {
		Instructions string
		Contexts     []string
		Question     string
	}{
		Instructions: SystemInstructions,
		Contexts:     contexts,
		Question:     question,
	})
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSuffix(buf.String(), "\n"), passages, nil
}

// fitBudget keeps passages in rank order while they fit the token budget.
// The first passage is always kept.
func (u *AnswerUseCase) fitBudget(passages []domain.Passage) []domain.Passage {
	if u.budget <= 0 || u.tokenizer == nil || len(passages) == 0 {
		return passages
	}

	used := u.tokenizer.CountTokens(passages[0].Text)
	kept := []domain.Passage{passages[0]}
	for _, p := range passages[1:] {
		tokens := u.tokenizer.CountTokens(p.Text)
		if used+tokens > u.budget {
			break
		}
		kept = append(kept, p)
		used += tokens
	}
	return kept
}

func nonEmpty(passages []domain.Passage) []domain.Passage {
	out := make([]domain.Passage, 0, len(passages))
	for _, p := range passages {
		if p.Text != "" {
			out = append(out, p)
		}
	}
	return out
}
