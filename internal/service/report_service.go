package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/EgorMarkor/BotOpros/internal/config"
	"github.com/EgorMarkor/BotOpros/internal/model"
	"github.com/EgorMarkor/BotOpros/pkg/docx"
	"github.com/EgorMarkor/BotOpros/pkg/monitoring"
	"github.com/EgorMarkor/BotOpros/pkg/tracing"

	"go.uber.org/zap"
)

// Категории отказов отчёта, которые оператору показываются по-разному.
var (
	ErrNoAdmins  = errors.New("нет пользователей с флагом is_admin")
	ErrNoAnswers = errors.New("нет анкет родителей для анализа")
)

const analystSystemPrompt = "Ты профессиональный аналитик."

const parentReportPrompt = `Проанализируй ответы родителей на анкету о школьном обучении их детей.

Данные анкет:
%s

Составь связный аналитический отчёт на русском языке: общие наблюдения,
заметные закономерности по группам вопросов, практические рекомендации школе.
Сводные данные, где это уместно, оформи таблицей в формате Markdown
(колонки через «|», после шапки строка-разделитель из дефисов).`

// ReportUserStore и ReportAnswerStore — срез хранилища для отчёта.
type ReportUserStore interface {
	ListAdmins() ([]model.User, error)
}

type ReportAnswerStore interface {
	ListByUserID(userID uint) ([]model.Answer, error)
	ListByRole(role model.Role) ([]model.Answer, error)
}

// DocumentSender отправляет готовый документ в канал доставки.
type DocumentSender interface {
	SendDocument(ctx context.Context, chatID int64, name string, data []byte, caption string) error
}

// ReportResult — итог рассылки: сколько админов получили документ и кто нет.
type ReportResult struct {
	Sent   int     `json:"sent"`
	Failed []int64 `json:"failed,omitempty"`
}

// ReportService строит расшифровку ответов, получает у AI связный отчёт
// и рассылает его администраторам документом Word.
type ReportService struct {
	users   ReportUserStore
	answers ReportAnswerStore
	ai      *AIService
	sender  DocumentSender
	builder *docx.Builder
	cfg     config.ReportConfig
	log     *zap.Logger
}

func NewReportService(users ReportUserStore, answers ReportAnswerStore, ai *AIService, sender DocumentSender, cfg config.ReportConfig, log *zap.Logger) *ReportService {
	builder := docx.NewBuilder()
	if cfg.CellWidth > 0 {
		builder.CellWidth = cfg.CellWidth
	}
	return &ReportService{
		users:   users,
		answers: answers,
		ai:      ai,
		sender:  sender,
		builder: builder,
		cfg:     cfg,
		log:     log,
	}
}

// BuildUserTranscript — ответы одного респондента строками
// «- вопрос — ответ» в порядке создания.
func (s *ReportService) BuildUserTranscript(userID uint) (string, error) {
	answers, err := s.answers.ListByUserID(userID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, a := range answers {
		fmt.Fprintf(&sb, "- %s — %s\n", a.Question.Text, a.Answer)
	}
	return sb.String(), nil
}

// BuildRoleTranscript — ответы всех респондентов роли, блоками по
// респонденту: заголовок «Респондент <tg_id>:», дальше его ответы.
func (s *ReportService) BuildRoleTranscript(role model.Role) (string, error) {
	answers, err := s.answers.ListByRole(role)
	if err != nil {
		return "", err
	}
	if len(answers) == 0 {
		return "", nil
	}

	var sb strings.Builder
	var currentUserID uint
	for _, a := range answers {
		if a.UserID != currentUserID {
			currentUserID = a.UserID
			fmt.Fprintf(&sb, "\nРеспондент %d:\n", a.User.TgID)
		}
		fmt.Fprintf(&sb, "- %s — %s\n", a.Question.Text, a.Answer)
	}
	return strings.TrimSpace(sb.String()), nil
}

// GenerateParentReport возвращает текст отчёта по всем анкетам родителей.
func (s *ReportService) GenerateParentReport(ctx context.Context) (string, error) {
	ctx, span := tracing.Tracer.Start(ctx, "report.generate")
	defer span.End()

	data, err := s.BuildRoleTranscript(model.RoleParent)
	if err != nil {
		return "", fmt.Errorf("build transcript: %w", err)
	}
	if data == "" {
		return "", ErrNoAnswers
	}

	text, err := s.ai.Chat(ctx, analystSystemPrompt, fmt.Sprintf(parentReportPrompt, data))
	if err != nil {
		return "", fmt.Errorf("generate report: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("generate report: AI вернул пустой текст")
	}
	return text, nil
}

// SendParentReport генерирует отчёт, упаковывает в .docx и отправляет
// каждому администратору. Сбой доставки одному получателю логируется и
// не прерывает рассылку остальным; сбой генерации прерывает всё, частичный
// документ не рассылается.
func (s *ReportService) SendParentReport(ctx context.Context) (*ReportResult, error) {
	admins, err := s.users.ListAdmins()
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	if len(admins) == 0 {
		return nil, ErrNoAdmins
	}

	text, err := s.GenerateParentReport(ctx)
	if err != nil {
		return nil, err
	}

	document, err := s.builder.Build(text)
	if err != nil {
		return nil, fmt.Errorf("build document: %w", err)
	}

	result := &ReportResult{}
	for _, admin := range admins {
		if err := s.sender.SendDocument(ctx, admin.TgID, s.cfg.FileName, document, s.cfg.Caption); err != nil {
			s.log.Error("report delivery failed",
				zap.Int64("tg_id", admin.TgID),
				zap.Error(err))
			result.Failed = append(result.Failed, admin.TgID)
			continue
		}
		result.Sent++
	}

	monitoring.ReportsGenerated.Inc()
	return result, nil
}
