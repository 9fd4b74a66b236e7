package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftsmart/escrow-service/internal/adapters/security"
	"github.com/craftsmart/escrow-service/internal/app/bootstrap"
)

func memoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("REDIS_URL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("FLW_SECRET_KEY", "FLWSECK_TEST-123")
	t.Setenv("FLW_SECRET_HASH", "hash")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand(nil)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", "testdata/none.yaml"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHashKeyVerifiesAgainstInterceptor(t *testing.T) {
	out, err := run(t, "hash-key", "s3cret", "--cost", "4")
	require.NoError(t, err)

	verifier := security.NewAPIKeyVerifier(strings.TrimSpace(out))
	require.True(t, verifier.Enabled())
	assert.NoError(t, verifier.Verify("s3cret"))
	assert.Error(t, verifier.Verify("other"))
}

func TestTokenCommandMintsVerifiableToken(t *testing.T) {
	memoryEnv(t)

	var runtime *bootstrap.Runtime
	root := NewRootCommand(func(ctx context.Context, path string) (*bootstrap.Runtime, error) {
		rt, err := bootstrap.NewRuntime(ctx, path)
		runtime = rt
		return rt, err
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", "testdata/none.yaml", "token", "--sub", "emp-1", "--role", "employer", "--name", "Grace"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	assert.Equal(t, "Bearer", body.TokenType)
	assert.Equal(t, 3600, body.ExpiresIn)

	claims, err := runtime.Signer().ParseAndValidate(body.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "emp-1", claims.SubjectID)
	assert.Equal(t, "employer", claims.Role)
	assert.Equal(t, "Grace", claims.Name)
}

func TestTokenCommandRejectsUnknownRole(t *testing.T) {
	memoryEnv(t)
	_, err := run(t, "token", "--sub", "x", "--role", "root")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestReconcileAndFlushOnEmptyStore(t *testing.T) {
	memoryEnv(t)

	out, err := run(t, "reconcile")
	require.NoError(t, err)
	var reconciled map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &reconciled))
	assert.Equal(t, 0, reconciled["checked"])

	out, err = run(t, "outbox", "flush")
	require.NoError(t, err)
	var flushed map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &flushed))
	assert.Equal(t, 1, flushed["batches"])
	assert.Equal(t, 0, flushed["published"])
}

func TestMigrateRefusesMemoryDriver(t *testing.T) {
	memoryEnv(t)
	_, err := run(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}
