package health

import (
	"context"
	"errors"
	"testing"

	"github.com/tastycandy/rlmtrans/pkg/provider/llm"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

type fakeGateway struct {
	connected bool
}

func (f fakeGateway) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return nil, nil
}
func (f fakeGateway) CountTokens(_ []types.Message) (int, error)     { return 0, nil }
func (f fakeGateway) Capabilities() types.ModelCapabilities          { return types.ModelCapabilities{} }
func (f fakeGateway) ListModels(_ context.Context) ([]string, error) { return nil, nil }
func (f fakeGateway) TestConnection(_ context.Context) bool          { return f.connected }

func TestLLMCheckerReportsConnectionFailure(t *testing.T) {
	c := LLMChecker("llm", fakeGateway{connected: false})
	if err := c.Check(context.Background()); err == nil {
		t.Error("expected error when TestConnection reports false")
	}
}

func TestLLMCheckerPassesWhenConnected(t *testing.T) {
	c := LLMChecker("llm", fakeGateway{connected: true})
	if err := c.Check(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(_ context.Context) error { return f.err }

func TestStoreCheckerDelegatesToPing(t *testing.T) {
	want := errors.New("connection refused")
	c := StoreChecker("store", fakePinger{err: want})
	if got := c.Check(context.Background()); got != want {
		t.Errorf("Check() = %v, want %v", got, want)
	}
}
