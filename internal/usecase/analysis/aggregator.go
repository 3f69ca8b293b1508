package analysis

import (
	"github.com/johnquangdev/focus-group-analyzer/errors"
	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
	domainrepo "github.com/johnquangdev/focus-group-analyzer/internal/domain/repositories"
)

// Aggregator flattens answers into the sequences the models consume. It reads
// either the accumulated store or a batch of responses sent with a request.
type Aggregator struct {
	store    domainrepo.ResponseRepository
	pipeline entities.TokenPipeline
}

// NewAggregator creates an Aggregator
func NewAggregator(store domainrepo.ResponseRepository, pipeline entities.TokenPipeline) *Aggregator {
	return &Aggregator{store: store, pipeline: pipeline}
}

// CheckScope tells an unknown corp, meeting or question apart from one that
// simply has no tokens yet. The store itself answers both with empty slices.
func (a *Aggregator) CheckScope(scope entities.AnalysisScope) error {
	if !a.store.HasCorp(scope.CorpID) {
		return errors.ErrCorpNotFound(scope.CorpID)
	}
	if !a.store.HasMeeting(scope.CorpID, scope.MeetingID) {
		return errors.ErrMeetingNotFound(scope.CorpID, scope.MeetingID)
	}
	if scope.QuestionID != nil && !a.store.HasQuestion(scope.CorpID, scope.MeetingID, *scope.QuestionID) {
		return errors.ErrQuestionNotFound(scope.CorpID, scope.MeetingID, *scope.QuestionID)
	}
	return nil
}

// Tokens returns the scope's token pool from the store
func (a *Aggregator) Tokens(scope entities.AnalysisScope) []string {
	if scope.QuestionID != nil {
		return a.store.AggregateQuestion(scope.CorpID, scope.MeetingID, *scope.QuestionID)
	}
	return a.store.AggregateMeeting(scope.CorpID, scope.MeetingID)
}

// Sentences returns one raw answer per participant. A meeting scope
// concatenates every question's sentences in script order.
func (a *Aggregator) Sentences(scope entities.AnalysisScope) []string {
	if scope.QuestionID != nil {
		return a.store.AggregateQuestionSentences(scope.CorpID, scope.MeetingID, *scope.QuestionID)
	}
	sentences := []string{}
	for _, entry := range a.store.Script(scope.CorpID, scope.MeetingID) {
		sentences = append(sentences, a.store.AggregateQuestionSentences(scope.CorpID, scope.MeetingID, entry.QuestionID)...)
	}
	return sentences
}

// FlattenAnswers extracts each response's answer in input order, unfiltered
func (a *Aggregator) FlattenAnswers(responses []entities.ScriptAnswer) []string {
	answers := make([]string, 0, len(responses))
	for _, r := range responses {
		answers = append(answers, r.Answer)
	}
	return answers
}

// BatchTokens tokenizes a request batch the same way stored answers are
func (a *Aggregator) BatchTokens(responses []entities.ScriptAnswer) []string {
	tokens := []string{}
	for _, answer := range a.FlattenAnswers(responses) {
		tokens = append(tokens, a.pipeline.Tokens(answer)...)
	}
	return tokens
}

// SentenceTokens tokenizes one sentence
func (a *Aggregator) SentenceTokens(sentence string) []string {
	return a.pipeline.Tokens(sentence)
}
