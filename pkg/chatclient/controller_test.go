package chatclient

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholar-search-go/internal/model"
	"scholar-search-go/pkg/agent"
	"scholar-search-go/pkg/log"
)

func init() {
	log.Init("error", "console", "")
}

// fakeGateway 是 ConversationGateway 的内存假实现。
type fakeGateway struct {
	conversations []model.Conversation
	messages      map[string][]model.Message

	appendErrByRole  map[string]error
	deleteErr        error
	listMessagesHook func(convID string)

	seq     int
	nowBase time.Time
}

func newFakeGateway(convs ...model.Conversation) *fakeGateway {
	return &fakeGateway{
		conversations:   convs,
		messages:        make(map[string][]model.Message),
		appendErrByRole: make(map[string]error),
		nowBase:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (g *fakeGateway) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	return append([]model.Conversation(nil), g.conversations...), nil
}

func (g *fakeGateway) CreateConversation(ctx context.Context, title string) (*model.Conversation, error) {
	g.seq++
	conv := model.Conversation{
		ID:    fmt.Sprintf("conv-%d", g.seq),
		Title: title,
	}
	g.conversations = append([]model.Conversation{conv}, g.conversations...)
	return &conv, nil
}

func (g *fakeGateway) DeleteConversation(ctx context.Context, convID string) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	kept := g.conversations[:0]
	for _, conv := range g.conversations {
		if conv.ID != convID {
			kept = append(kept, conv)
		}
	}
	g.conversations = kept
	return nil
}

func (g *fakeGateway) ListMessages(ctx context.Context, convID string) ([]model.Message, error) {
	if g.listMessagesHook != nil {
		hook := g.listMessagesHook
		g.listMessagesHook = nil
		hook(convID)
	}
	return append([]model.Message(nil), g.messages[convID]...), nil
}

func (g *fakeGateway) AppendMessage(ctx context.Context, convID, role, content string, meta *model.MessageMetadata) (*model.Message, error) {
	if err := g.appendErrByRole[role]; err != nil {
		return nil, err
	}
	g.seq++
	msg := model.Message{
		ID:             fmt.Sprintf("srv-%d", g.seq),
		ConversationID: convID,
		Role:           role,
		Content:        content,
		CreatedAt:      g.nowBase.Add(time.Duration(g.seq) * time.Second),
	}
	if meta != nil {
		msg.Metadata = *meta
	}
	g.messages[convID] = append(g.messages[convID], msg)
	return &msg, nil
}

// fakeAgent 总是返回固定的回复。
type fakeAgent struct {
	response string
}

func (a *fakeAgent) Search(ctx context.Context, query, threadID, variant string) *agent.SearchResult {
	return &agent.SearchResult{
		Response:         a.response,
		ResultsCount:     3,
		ProcessingTimeMs: 42,
	}
}

func newTestController(gw *fakeGateway) *Controller {
	return NewController(gw, &fakeAgent{response: "here are some scholarships"})
}

func selectFirst(t *testing.T, ctrl *Controller, gw *fakeGateway) {
	t.Helper()
	require.NoError(t, ctrl.LoadInitial(context.Background(), gw.conversations[0].ID))
	require.NotNil(t, ctrl.State().CurrentConversation)
}

func TestSendConfirmsUserAndAssistantMessages(t *testing.T) {
	gw := newFakeGateway(model.Conversation{ID: "c1", Title: "New Conversation"})
	ctrl := newTestController(gw)
	selectFirst(t, ctrl, gw)

	ctrl.Send(context.Background(), "find robotics scholarships", "gemini")

	state := ctrl.State()
	require.Len(t, state.Messages, 2)
	assert.Equal(t, model.RoleUser, state.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, state.Messages[1].Role)
	// 临时标识已被服务端 ID 取代
	assert.NotContains(t, state.Messages[0].ID, tempIDPrefix)
	assert.NotContains(t, state.Messages[1].ID, tempIDPrefix)
	assert.True(t, state.Messages[0].CreatedAt.Before(state.Messages[1].CreatedAt))
	assert.Equal(t, "find robotics scholarships", state.Messages[1].Metadata.SearchQuery)
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.Error)
}

func TestSendRollsBackOptimisticMessageOnPersistFailure(t *testing.T) {
	gw := newFakeGateway(model.Conversation{ID: "c1"})
	gw.appendErrByRole[model.RoleUser] = errors.New("store unavailable")
	ctrl := newTestController(gw)
	selectFirst(t, ctrl, gw)

	ctrl.Send(context.Background(), "hello", "")

	state := ctrl.State()
	assert.Empty(t, state.Messages, "乐观消息必须被完整回滚")
	assert.Equal(t, "store unavailable", state.Error)
	assert.False(t, state.IsLoading)
}

func TestSendKeepsConfirmedUserMessageOnAssistantFailure(t *testing.T) {
	gw := newFakeGateway(model.Conversation{ID: "c1"})
	gw.appendErrByRole[model.RoleAssistant] = errors.New("store unavailable")
	ctrl := newTestController(gw)
	selectFirst(t, ctrl, gw)

	ctrl.Send(context.Background(), "hello", "")

	state := ctrl.State()
	require.Len(t, state.Messages, 1)
	assert.Equal(t, model.RoleUser, state.Messages[0].Role)
	assert.NotContains(t, state.Messages[0].ID, tempIDPrefix)
	assert.Equal(t, "store unavailable", state.Error)
	assert.False(t, state.IsLoading)
}

func TestSendIgnoresNoOpInput(t *testing.T) {
	gw := newFakeGateway(model.Conversation{ID: "c1"})
	ctrl := newTestController(gw)

	// 未选中会话
	ctrl.Send(context.Background(), "hello", "")
	assert.Empty(t, ctrl.State().Messages)

	selectFirst(t, ctrl, gw)

	// 空白内容
	ctrl.Send(context.Background(), "   ", "")
	assert.Empty(t, ctrl.State().Messages)
}

func TestSelectDiscardsStaleFetchResponse(t *testing.T) {
	gw := newFakeGateway(
		model.Conversation{ID: "slow"},
		model.Conversation{ID: "fast"},
	)
	gw.messages["slow"] = []model.Message{{ID: "m-slow", ConversationID: "slow", Role: model.RoleUser, Content: "old"}}
	gw.messages["fast"] = []model.Message{{ID: "m-fast", ConversationID: "fast", Role: model.RoleUser, Content: "new"}}

	ctrl := newTestController(gw)
	require.NoError(t, ctrl.LoadInitial(context.Background(), ""))

	// slow 的消息拉取还在途时，用户已经切换到 fast
	gw.listMessagesHook = func(convID string) {
		if convID == "slow" {
			require.NoError(t, ctrl.Select(context.Background(), "fast"))
		}
	}
	require.NoError(t, ctrl.Select(context.Background(), "slow"))

	state := ctrl.State()
	require.NotNil(t, state.CurrentConversation)
	assert.Equal(t, "fast", state.CurrentConversation.ID)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, "m-fast", state.Messages[0].ID, "迟到的响应不能覆盖新会话的消息")
}

func TestDeleteClearsSelectionOnlyForCurrent(t *testing.T) {
	gw := newFakeGateway(
		model.Conversation{ID: "c1"},
		model.Conversation{ID: "c2"},
	)
	ctrl := newTestController(gw)
	require.NoError(t, ctrl.LoadInitial(context.Background(), "c1"))

	// 删除非当前会话不影响选中状态
	require.NoError(t, ctrl.Delete(context.Background(), "c2"))
	state := ctrl.State()
	require.NotNil(t, state.CurrentConversation)
	assert.Equal(t, "c1", state.CurrentConversation.ID)
	assert.Len(t, state.Conversations, 1)

	// 删除当前会话清空选中与消息
	require.NoError(t, ctrl.Delete(context.Background(), "c1"))
	state = ctrl.State()
	assert.Nil(t, state.CurrentConversation)
	assert.Empty(t, state.Messages)
	assert.Empty(t, state.Conversations)
}

func TestDeleteFailureLeavesStateUnchanged(t *testing.T) {
	gw := newFakeGateway(model.Conversation{ID: "c1"})
	gw.deleteErr = errors.New("conversation not found")
	ctrl := newTestController(gw)
	require.NoError(t, ctrl.LoadInitial(context.Background(), "c1"))

	err := ctrl.Delete(context.Background(), "c1")
	require.Error(t, err)

	state := ctrl.State()
	assert.Len(t, state.Conversations, 1)
	require.NotNil(t, state.CurrentConversation)
	assert.Equal(t, "conversation not found", state.Error)
}

func TestCreatePrependsAndSelects(t *testing.T) {
	gw := newFakeGateway(model.Conversation{ID: "old"})
	ctrl := newTestController(gw)
	require.NoError(t, ctrl.LoadInitial(context.Background(), "old"))

	conv, err := ctrl.Create(context.Background(), "")
	require.NoError(t, err)

	state := ctrl.State()
	require.NotNil(t, state.CurrentConversation)
	assert.Equal(t, conv.ID, state.CurrentConversation.ID)
	assert.Equal(t, conv.ID, state.Conversations[0].ID)
	assert.Empty(t, state.Messages)
}
