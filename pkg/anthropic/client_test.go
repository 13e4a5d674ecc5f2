package anthropic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func TestMessageResponse_Text(t *testing.T) {
	t.Parallel()

	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "Cause of death: "},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "pneumonia"},
		},
	}
	assert.Equal(t, "Cause of death: pneumonia", resp.Text())
}

func TestTokenUsage_EstimateCost(t *testing.T) {
	t.Parallel()

	u := TokenUsage{
		InputTokens:              1_000_000,
		OutputTokens:             100_000,
		CacheCreationInputTokens: 200_000,
		CacheReadInputTokens:     500_000,
	}

	got := u.EstimateCost("claude-haiku-4-5-20251001")
	want := 0.80 + 0.40 + 0.2*0.80*1.25 + 0.5*0.80*0.1
	assert.InDelta(t, want, got, 1e-9)

	assert.Zero(t, u.EstimateCost("unknown-model"))
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	t.Parallel()

	blocks := BuildCachedSystemBlocks("You extract death details from obituaries.")
	require.Len(t, blocks, 1)
	require.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "1h", blocks[0].CacheControl.TTL)
}

func TestToSDKMessages_Roles(t *testing.T) {
	t.Parallel()

	out := toSDKMessages([]Message{
		{Role: "user", Content: "How did Peter Lorre die?"},
		{Role: "assistant", Content: "A stroke, in March 1964."},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "user", string(out[0].Role))
	assert.Equal(t, "assistant", string(out[1].Role))
}

func TestMockClient(t *testing.T) {
	t.Parallel()

	mc := &MockClient{}
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(&MessageResponse{Content: []ContentBlock{{Type: "text", Text: "ok"}}}, nil)

	resp, err := mc.CreateMessage(context.Background(), MessageRequest{Model: "claude-haiku-4-5-20251001"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	mc.AssertExpectations(t)
}
