package composer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondo/internal/common"
	"github.com/ternarybob/respondo/internal/interfaces"
	"github.com/ternarybob/respondo/internal/models"
	"github.com/ternarybob/respondo/internal/templates"
)

// ApologyMessage is the fixed text returned when composition itself fails.
// User-facing replies never carry raw error details.
const ApologyMessage = "I'm sorry, I'm having trouble processing your request right now. Please try again."

const (
	// topSources bounds how many matches feed the LLM context and the
	// reply's source list.
	topSources = 3

	// snippetChars bounds the content excerpt interpolated into templates.
	snippetChars = 200

	// minFragmentChars filters out list markers and stray abbreviations
	// when limiting sentences.
	minFragmentChars = 10
)

// Service turns retrieval matches into a user-facing reply. The decision
// chain is fixed: clarify on weak evidence, otherwise answer via the LLM
// backend, otherwise answer from an intent-keyed template. Compose never
// returns an error; every failure degrades to a weaker reply.
type Service struct {
	llm    interfaces.LLMService
	config *common.ComposerConfig
	tmpl   *templates.Template
	logger arbor.ILogger
}

// NewService creates a new response composer. Prompts and clarification
// texts come from the composer template, resolved through the configured
// templates directory with embedded defaults as fallback.
func NewService(llm interfaces.LLMService, config *common.ComposerConfig, logger arbor.ILogger) (*Service, error) {
	tmpl, err := templates.GetTemplate("composer", config.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load composer template: %w", err)
	}
	if tmpl.Type != templates.TemplateTypeComposer {
		return nil, fmt.Errorf("template 'composer' is type '%s', expected 'composer'", tmpl.Type)
	}

	return &Service{
		llm:    llm,
		config: config,
		tmpl:   tmpl,
		logger: logger,
	}, nil
}

// ApologyReply is the degradation reply for internal pipeline failures.
func ApologyReply() *models.Reply {
	return &models.Reply{
		Message:            ApologyMessage,
		Sources:            []string{},
		Confidence:         0,
		NeedsClarification: true,
	}
}

// Compose builds a reply for a query from ranked matches and recent
// conversation history. companyName only flavors the LLM system prompt;
// tenant scoping happened at retrieval.
func (s *Service) Compose(ctx context.Context, companyName, query string, matches []models.Match, history []models.ConversationMessage) *models.Reply {
	if len(matches) == 0 {
		return &models.Reply{
			Message:            fmt.Sprintf(s.tmpl.NoMatch, query),
			Sources:            []string{},
			Confidence:         0,
			NeedsClarification: true,
		}
	}

	topScore := matches[0].Score
	if topScore < s.config.ClarificationThreshold {
		return &models.Reply{
			Message:            fmt.Sprintf(s.tmpl.LowConfidence, query),
			Sources:            sourceIDs(matches, 2),
			Confidence:         topScore,
			NeedsClarification: true,
		}
	}

	sources := sourceIDs(matches, topSources)

	text, err := s.completeWithLLM(ctx, companyName, query, matches, history)
	if err == nil {
		return &models.Reply{
			Message:    text,
			Sources:    sources,
			Confidence: topScore,
		}
	}
	s.logger.Debug().Err(err).Msg("Completion backend unavailable, using template reply")

	return &models.Reply{
		Message:    s.templateReply(query, matches[0]),
		Sources:    sources,
		Confidence: topScore,
	}
}

// completeWithLLM forwards context and history to the completion backend.
// The backend's own timeout bounds the call.
func (s *Service) completeWithLLM(ctx context.Context, companyName, query string, matches []models.Match, history []models.ConversationMessage) (string, error) {
	if s.llm == nil || s.llm.GetMode() == interfaces.LLMModeDisabled {
		return "", fmt.Errorf("%w: no completion backend configured", models.ErrCompletionUnavailable)
	}

	messages := make([]interfaces.Message, 0, s.config.HistoryMessages+2)
	messages = append(messages, interfaces.Message{
		Role:    "system",
		Content: fmt.Sprintf(s.tmpl.System, companyName),
	})

	recent := history
	if limit := s.config.HistoryMessages; limit > 0 && len(recent) > limit {
		recent = recent[len(recent)-limit:]
	}
	for _, msg := range recent {
		messages = append(messages, interfaces.Message{Role: msg.Role, Content: msg.Content})
	}

	messages = append(messages, interfaces.Message{
		Role:    "user",
		Content: fmt.Sprintf(s.tmpl.User, s.contextBlock(matches), query),
	})

	text, err := s.llm.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: backend returned empty completion", models.ErrCompletionUnavailable)
	}
	return text, nil
}

// contextBlock renders the top matches as numbered sources, each truncated
// to the configured context length.
func (s *Service) contextBlock(matches []models.Match) string {
	var b strings.Builder
	for i, match := range matches {
		if i >= topSources {
			break
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Source %d (relevance %.2f):\n%s", i+1, match.Score, truncateContent(match.Content, s.config.ContextChars))
	}
	return b.String()
}

// templateReply synthesizes an answer without a completion backend: pick a
// template by query intent, interpolate the best match, cap the sentence
// count.
func (s *Service) templateReply(query string, best models.Match) string {
	snippet := strings.TrimSpace(truncateContent(best.Content, snippetChars))

	var message string
	switch detectIntent(query) {
	case intentGreeting:
		// Fixed text, already within the sentence limit.
		return "Hello! How can I help you today?"
	case intentWhatIs:
		message = fmt.Sprintf("Here's what I can tell you: %s", snippet)
	case intentHowTo:
		message = fmt.Sprintf("Our process works like this: %s", snippet)
	case intentContact:
		message = fmt.Sprintf("Here's how we can help: %s", snippet)
	case intentPricing:
		message = fmt.Sprintf("Here's our pricing information: %s", snippet)
	case intentServices:
		message = fmt.Sprintf("Here are our services: %s", snippet)
	default:
		message = fmt.Sprintf("Based on our information: %s", snippet)
	}

	return LimitSentences(message, s.config.MaxSentences)
}

// sourceIDs returns the distinct entry IDs behind the top matches, in rank
// order. Multiple chunks of one entry collapse to a single source.
func sourceIDs(matches []models.Match, limit int) []string {
	seen := make(map[string]bool, limit)
	ids := make([]string, 0, limit)
	for _, match := range matches {
		if len(ids) >= limit {
			break
		}
		if seen[match.EntryID] {
			continue
		}
		seen[match.EntryID] = true
		ids = append(ids, match.EntryID)
	}
	return ids
}

type intent string

const (
	intentGreeting intent = "greeting"
	intentWhatIs   intent = "what_is"
	intentHowTo    intent = "how_to"
	intentContact  intent = "contact"
	intentPricing  intent = "pricing"
	intentServices intent = "services"
	intentGeneric  intent = "generic"
)

// detectIntent classifies a query by its vocabulary. Checks run in priority
// order; the first hit wins.
func detectIntent(query string) intent {
	lowered := strings.ToLower(query)
	words := wordSet(lowered)

	switch {
	case words["hello"] || words["hi"] || words["hey"] ||
		strings.Contains(lowered, "good morning") || strings.Contains(lowered, "good afternoon"):
		return intentGreeting
	case words["what"] || words["information"] || strings.Contains(lowered, "tell me about"):
		return intentWhatIs
	case words["how"] || words["process"] || words["work"] || words["works"]:
		return intentHowTo
	case words["contact"] || words["support"] || words["help"] || words["phone"] || words["email"]:
		return intentContact
	case words["price"] || words["pricing"] || words["cost"] || words["fee"] || words["charge"] || words["expensive"]:
		return intentPricing
	case words["service"] || words["services"] || words["offer"] || words["provide"]:
		return intentServices
	default:
		return intentGeneric
	}
}

func wordSet(lowered string) map[string]bool {
	words := make(map[string]bool)
	for _, word := range strings.Fields(lowered) {
		word = strings.Trim(word, ".,!?;:'\"()[]")
		if word != "" {
			words[word] = true
		}
	}
	return words
}

var (
	sentenceEndRe = regexp.MustCompile(`[.!?]+(?:\s+|$)`)
	listBreakRe   = regexp.MustCompile(`\n|\s+\d+\.`)
	numberingRe   = regexp.MustCompile(`^\d+\.\s*`)
)

// LimitSentences caps a reply at maxSentences sentence-like fragments.
// Fragments come from splitting on terminal punctuation, newlines and
// numbered list markers; leading numbering is stripped and short fragments
// are dropped unless nothing longer survives. The result always ends with
// terminal punctuation.
func LimitSentences(response string, maxSentences int) string {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" || maxSentences <= 0 {
		return trimmed
	}

	fragments := make([]string, 0)
	for _, sentence := range sentenceEndRe.Split(trimmed, -1) {
		for _, part := range listBreakRe.Split(sentence, -1) {
			part = strings.TrimSpace(numberingRe.ReplaceAllString(strings.TrimSpace(part), ""))
			if part != "" {
				fragments = append(fragments, part)
			}
		}
	}
	if len(fragments) == 0 {
		return trimmed
	}

	meaningful := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		if len(fragment) > minFragmentChars {
			meaningful = append(meaningful, fragment)
		}
	}
	if len(meaningful) == 0 {
		meaningful = fragments
	}
	if len(meaningful) > maxSentences {
		meaningful = meaningful[:maxSentences]
	}

	result := strings.Join(meaningful, ". ")
	if !strings.HasSuffix(result, ".") && !strings.HasSuffix(result, "!") && !strings.HasSuffix(result, "?") {
		result += "."
	}
	return result
}

// truncateContent truncates content to the specified length
func truncateContent(content string, maxLength int) string {
	if maxLength <= 0 || len(content) <= maxLength {
		return content
	}
	return content[:maxLength] + "..."
}
