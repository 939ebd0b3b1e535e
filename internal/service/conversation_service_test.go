package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"scholar-search-go/internal/model"
	"scholar-search-go/pkg/agent"
	"scholar-search-go/pkg/log"
)

func init() {
	log.Init("error", "console", "")
}

// fakeConvRepo 是 ConversationRepository 的内存假实现。
type fakeConvRepo struct {
	convs map[string]*model.Conversation
	msgs  map[string][]model.Message
	seq   int
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{
		convs: make(map[string]*model.Conversation),
		msgs:  make(map[string][]model.Message),
	}
}

func (r *fakeConvRepo) nextID(prefix string) string {
	r.seq++
	return fmt.Sprintf("%s-%d", prefix, r.seq)
}

func (r *fakeConvRepo) ListByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	var out []model.Conversation
	for _, conv := range r.convs {
		if conv.UserID == userID && !conv.IsArchived {
			out = append(out, *conv)
		}
	}
	return out, nil
}

func (r *fakeConvRepo) Create(ctx context.Context, conv *model.Conversation) error {
	if conv.ID == "" {
		conv.ID = r.nextID("conv")
	}
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	stored := *conv
	r.convs[conv.ID] = &stored
	return nil
}

func (r *fakeConvRepo) FindOwned(ctx context.Context, convID, userID string) (*model.Conversation, error) {
	conv, ok := r.convs[convID]
	if !ok || conv.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *conv
	return &copied, nil
}

func (r *fakeConvRepo) UpdateFields(ctx context.Context, convID string, updates map[string]interface{}) error {
	conv, ok := r.convs[convID]
	if !ok {
		return nil
	}
	for key, value := range updates {
		switch key {
		case "title":
			conv.Title = value.(string)
		case "message_count":
			conv.MessageCount = value.(int)
		case "updated_at":
			conv.UpdatedAt = value.(time.Time)
		}
	}
	return nil
}

func (r *fakeConvRepo) Delete(ctx context.Context, convID, userID string) (int64, error) {
	conv, ok := r.convs[convID]
	if !ok || conv.UserID != userID {
		return 0, nil
	}
	delete(r.convs, convID)
	delete(r.msgs, convID)
	return 1, nil
}

func (r *fakeConvRepo) ListMessages(ctx context.Context, convID string) ([]model.Message, error) {
	return append([]model.Message(nil), r.msgs[convID]...), nil
}

func (r *fakeConvRepo) CreateMessage(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = r.nextID("msg")
	}
	msg.CreatedAt = time.Now()
	r.msgs[msg.ConversationID] = append(r.msgs[msg.ConversationID], *msg)
	return nil
}

// fakeAgentClient 总是返回固定的回复。
type fakeAgentClient struct{}

func (fakeAgentClient) Search(ctx context.Context, query, threadID, variant string) *agent.SearchResult {
	return &agent.SearchResult{
		Response:         "here are some scholarships",
		ResultsCount:     5,
		ProcessingTimeMs: 17,
	}
}

func newTestService(repo *fakeConvRepo) ConversationService {
	return NewConversationService(repo, fakeAgentClient{})
}

func seedConversation(t *testing.T, repo *fakeConvRepo, userID, title string) *model.Conversation {
	t.Helper()
	conv := &model.Conversation{UserID: userID, Title: title}
	require.NoError(t, repo.Create(context.Background(), conv))
	return conv
}

func TestCreateConversationDefaultsTitle(t *testing.T) {
	repo := newFakeConvRepo()
	svc := newTestService(repo)

	conv, err := svc.CreateConversation(context.Background(), "u1", "  ")
	require.NoError(t, err)
	assert.Equal(t, "New Conversation", conv.Title)
	assert.Equal(t, 0, conv.MessageCount)
}

func TestAppendMessageIncrementsCountAndRefreshesUpdatedAt(t *testing.T) {
	repo := newFakeConvRepo()
	svc := newTestService(repo)
	conv := seedConversation(t, repo, "u1", "New Conversation")
	before := repo.convs[conv.ID].UpdatedAt

	_, err := svc.AppendMessage(context.Background(), conv.ID, "u1", model.RoleUser, "hello", nil)
	require.NoError(t, err)

	stored := repo.convs[conv.ID]
	assert.Equal(t, 1, stored.MessageCount)
	assert.False(t, stored.UpdatedAt.Before(before))

	_, err = svc.AppendMessage(context.Background(), conv.ID, "u1", model.RoleAssistant, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.convs[conv.ID].MessageCount)
}

func TestAppendMessageRegeneratesTitleExactlyOnce(t *testing.T) {
	repo := newFakeConvRepo()
	svc := newTestService(repo)
	conv := seedConversation(t, repo, "u1", "New Conversation")

	// 第一条用户消息触发标题生成
	_, err := svc.AppendMessage(context.Background(), conv.ID, "u1", model.RoleUser,
		"I am looking for engineering scholarships for undergraduate international students", nil)
	require.NoError(t, err)
	firstTitle := repo.convs[conv.ID].Title
	assert.Equal(t, "Engineering Undergraduate Scholarships", firstTitle)

	// 后续消息不再改变标题
	_, err = svc.AppendMessage(context.Background(), conv.ID, "u1", model.RoleAssistant, "sure", nil)
	require.NoError(t, err)
	_, err = svc.AppendMessage(context.Background(), conv.ID, "u1", model.RoleUser,
		"what about nursing scholarships instead", nil)
	require.NoError(t, err)
	assert.Equal(t, firstTitle, repo.convs[conv.ID].Title)
}

func TestAppendMessageByAssistantNeverSetsTitle(t *testing.T) {
	repo := newFakeConvRepo()
	svc := newTestService(repo)
	conv := seedConversation(t, repo, "u1", "New Conversation")

	_, err := svc.AppendMessage(context.Background(), conv.ID, "u1", model.RoleAssistant, "welcome", nil)
	require.NoError(t, err)
	assert.Equal(t, "New Conversation", repo.convs[conv.ID].Title)
}

func TestOwnershipMapsToNotFound(t *testing.T) {
	repo := newFakeConvRepo()
	svc := newTestService(repo)
	conv := seedConversation(t, repo, "owner", "New Conversation")

	_, err := svc.ListMessages(context.Background(), conv.ID, "intruder")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = svc.UpdateTitle(context.Background(), conv.ID, "intruder", "stolen")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = svc.AppendMessage(context.Background(), conv.ID, "intruder", model.RoleUser, "hi", nil)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestDeleteConversationContract(t *testing.T) {
	repo := newFakeConvRepo()
	svc := newTestService(repo)
	conv := seedConversation(t, repo, "u1", "New Conversation")

	// 非属主删除不命中任何行，返回 NotFound 而非静默成功
	err := svc.DeleteConversation(context.Background(), conv.ID, "intruder")
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.Contains(t, repo.convs, conv.ID)

	require.NoError(t, svc.DeleteConversation(context.Background(), conv.ID, "u1"))
	assert.NotContains(t, repo.convs, conv.ID)

	// 再次删除同样返回 NotFound
	err = svc.DeleteConversation(context.Background(), conv.ID, "u1")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestCreateWithFirstMessageComposesFullTurn(t *testing.T) {
	repo := newFakeConvRepo()
	svc := newTestService(repo)

	result, err := svc.CreateWithFirstMessage(context.Background(), "u1",
		"I am looking for engineering scholarships for undergraduate international students", "gemini")
	require.NoError(t, err)

	assert.Equal(t, "Engineering Undergraduate Scholarships", result.Conversation.Title)
	assert.Equal(t, 2, result.Conversation.MessageCount)
	assert.Equal(t, model.RoleUser, result.UserMessage.Role)
	assert.Equal(t, model.RoleAssistant, result.AssistantMessage.Role)
	assert.Equal(t, "here are some scholarships", result.AssistantMessage.Content)
	require.NotNil(t, result.AssistantMessage.Metadata.ResultsCount)
	assert.Equal(t, 5, *result.AssistantMessage.Metadata.ResultsCount)

	messages, err := svc.ListMessages(context.Background(), result.Conversation.ID, "u1")
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestAppendMessageRejectsEmptyContent(t *testing.T) {
	repo := newFakeConvRepo()
	svc := newTestService(repo)
	conv := seedConversation(t, repo, "u1", "New Conversation")

	_, err := svc.AppendMessage(context.Background(), conv.ID, "u1", model.RoleUser, "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 0, repo.convs[conv.ID].MessageCount)
}
