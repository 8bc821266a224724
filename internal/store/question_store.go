package store

import (
	"context"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/question"
	"github.com/jmoiron/sqlx"
)

const (
	listQuestionsQuery  = "SELECT * FROM questions ORDER BY id"
	createQuestionQuery = `
		INSERT INTO questions (id, prompt, answer, category, points) VALUES
		(:id, :prompt, :answer, :category, :points)
	`
)

type QuestionStore struct {
	db *sqlx.DB
}

func NewQuestionStore(db *sqlx.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

// ListQuestions returns the full question set.
func (s *QuestionStore) ListQuestions(ctx context.Context) ([]question.Question, error) {
	var questions []question.Question
	if err := s.db.SelectContext(ctx, &questions, listQuestionsQuery); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *QuestionStore) CreateQuestion(ctx context.Context, q *question.Question) error {
	_, err := s.db.NamedExecContext(ctx, createQuestionQuery, q)
	return err
}
