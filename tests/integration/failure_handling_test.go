package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/fedflow/client"
	"github.com/BaSui01/fedflow/protocol"
	"github.com/BaSui01/fedflow/testutil/fixtures"
	"github.com/BaSui01/fedflow/testutil/mocks"
	"github.com/BaSui01/fedflow/types"
)

// TestClientSession_OperationFailureAbortsSession surfaces a train failure as the session outcome
func TestClientSession_OperationFailureAbortsSession(t *testing.T) {
	boom := errors.New("training diverged")
	coord := mocks.NewMockCoordinator().
		WithScript(fixtures.TrainInstruction())
	ops := mocks.NewMockOperations().WithTrainError(boom)
	rec := mocks.NewRecordingListener()

	_, errCh := startSession(t, coord, ops, rec)
	err := awaitSession(t, errCh)

	require.Error(t, err)
	assert.Equal(t, types.ErrOperation, types.GetErrorCode(err))
	assert.ErrorIs(t, err, boom)
	var terr *types.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "train", terr.Operation)

	// the failed operation never produces a response frame
	assert.Equal(t, []string{protocol.KindHandshake}, coord.ReceivedKinds())

	// reported exactly once, at the dispatch site
	require.Len(t, rec.Errors(), 1)
	assert.ErrorIs(t, rec.Errors()[0], boom)
	assert.Equal(t, 1, rec.TrainStartedCount())
	assert.Empty(t, rec.TrainResults())

	last, ok := rec.LastDisconnect()
	require.True(t, ok)
	assert.False(t, last.Graceful)
}

// TestClientSession_MalformedTensorAbortsSession treats an undecodable weight push as a protocol error
func TestClientSession_MalformedTensorAbortsSession(t *testing.T) {
	bad := fixtures.InvalidTensor()
	poison := protocol.WireTensor{
		Name:  "poison",
		Dtype: protocol.DtypeFloat32,
		Shape: bad.Shape,
		Data:  bad.Data,
	}
	coord := mocks.NewMockCoordinator().
		WithScript(fixtures.SendWeightsInstruction(poison))
	ops := mocks.NewMockOperations()
	rec := mocks.NewRecordingListener()

	_, errCh := startSession(t, coord, ops, rec)
	err := awaitSession(t, errCh)

	require.Error(t, err)
	assert.Equal(t, types.ErrProtocol, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "poison")

	// the model never sees weights that failed to decode
	assert.Equal(t, 0, ops.SetWeightsCalls())
	assert.Empty(t, rec.WeightsReceived())

	require.Len(t, rec.Errors(), 1)
	assert.Equal(t, types.ErrProtocol, types.GetErrorCode(rec.Errors()[0]))

	last, ok := rec.LastDisconnect()
	require.True(t, ok)
	assert.False(t, last.Graceful)
}

// TestClientSession_RetryExhaustion burns every attempt against a dead endpoint
func TestClientSession_RetryExhaustion(t *testing.T) {
	coord := mocks.NewMockCoordinator()
	url := coord.Start(t)
	coord.Close()

	cfg := fixtures.TestClientConfig(url)
	ops := mocks.NewMockOperations()
	rec := mocks.NewRecordingListener()

	cl, err := client.New(cfg, ops, client.WithListener(rec))
	require.NoError(t, err)

	runErr := cl.Run(context.Background())

	require.Error(t, runErr)
	assert.Equal(t, types.ErrConnection, types.GetErrorCode(runErr))

	// MaxRetries 2 means three attempts total
	want := []mocks.ConnectionAttempt{
		{Attempt: 1, MaxAttempts: 3},
		{Attempt: 2, MaxAttempts: 3},
		{Attempt: 3, MaxAttempts: 3},
	}
	assert.Equal(t, want, rec.Attempts())

	errs := rec.Errors()
	require.Len(t, errs, 3)
	for _, e := range errs {
		assert.Equal(t, types.ErrConnection, types.GetErrorCode(e))
	}

	last, ok := rec.LastDisconnect()
	require.True(t, ok)
	assert.False(t, last.Graceful)
	assert.ErrorIs(t, last.Cause, runErr)

	stats := cl.Stats()
	assert.Equal(t, int64(3), stats.ConnectionAttempts)
	assert.Equal(t, int64(3), stats.Errors)
}

// TestClientSession_DisabledHealthCheck leaves pings unanswered when health checks are off
func TestClientSession_DisabledHealthCheck(t *testing.T) {
	coord := mocks.NewMockCoordinator().
		WithScript(fixtures.HealthPingInstruction(), fixtures.TrainInstruction()).
		WithKeepalive(20 * time.Millisecond)
	ops := mocks.NewMockOperations()
	rec := mocks.NewRecordingListener()

	cfg := fixtures.TestClientConfig(coord.Start(t))
	cfg.EnableHealthCheck = false
	cl, err := client.New(cfg, ops, client.WithListener(rec))
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- cl.Run(context.Background())
	}()

	require.True(t, coord.WaitForReceived(2, 5*time.Second))
	require.NoError(t, stopSession(t, cl, errCh))

	kinds := coord.ReceivedKinds()
	assert.Equal(t, []string{protocol.KindHandshake, protocol.KindTrain}, kinds)
	assert.NotContains(t, kinds, protocol.KindHealthPong)
	assert.Equal(t, int64(0), cl.Stats().HealthChecks)
}
