package jointaccount_test

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/meridian/algo-wallet/internal/config"
	"github/meridian/algo-wallet/internal/jointaccount"
	"github/meridian/algo-wallet/internal/test"
)

func TestClientCreateAndFetch(t *testing.T) {
	test.WithTestSignRequestServer(t, func(srv *test.SignRequestServer, client *jointaccount.Client) {
		ctx := context.Background()

		srv.Participants = []string{"A", "B", "C"}
		srv.Threshold = 2

		created, err := client.CreateSignRequest(ctx, jointaccount.CreateSignRequestInput{
			JointAddress:        "JOINT",
			Proposer:            "A",
			Type:                jointaccount.TypeAsync,
			RawTransactionLists: [][]string{{base64.StdEncoding.EncodeToString([]byte("tx"))}},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, jointaccount.StatusPending, created.Status)
		assert.Equal(t, 2, created.Threshold)
		assert.False(t, created.ExpiresAt.IsZero())

		fetched, err := client.GetSignRequest(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, fetched.ID)
		assert.Equal(t, [][]string{{base64.StdEncoding.EncodeToString([]byte("tx"))}}, fetched.RawTransactionLists)
	})
}

func TestClientUnknownSignRequest(t *testing.T) {
	test.WithTestSignRequestServer(t, func(_ *test.SignRequestServer, client *jointaccount.Client) {
		_, err := client.GetSignRequest(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, errors.Is(err, jointaccount.ErrProposalNotFound))
	})
}

func TestClientResponsesDriveStatus(t *testing.T) {
	test.WithTestSignRequestServer(t, func(srv *test.SignRequestServer, client *jointaccount.Client) {
		ctx := context.Background()

		srv.Participants = []string{"A", "B", "C"}
		srv.Threshold = 2

		created, err := client.CreateSignRequest(ctx, jointaccount.CreateSignRequestInput{
			JointAddress: "JOINT",
			Proposer:     "A",
			Type:         jointaccount.TypeAsync,
		})
		require.NoError(t, err)

		p, err := client.SubmitResponse(ctx, created.ID, "A", jointaccount.SignResponseInput{
			Outcome:    jointaccount.OutcomeSigned,
			Signatures: []string{},
		})
		require.NoError(t, err)
		assert.Equal(t, jointaccount.StatusPending, p.Status)

		p, err = client.SubmitResponse(ctx, created.ID, "B", jointaccount.SignResponseInput{
			Outcome: jointaccount.OutcomeDeclined,
		})
		require.NoError(t, err)
		assert.Equal(t, jointaccount.StatusPending, p.Status)

		p, err = client.SubmitResponse(ctx, created.ID, "C", jointaccount.SignResponseInput{
			Outcome: jointaccount.OutcomeSigned,
		})
		require.NoError(t, err)
		assert.Equal(t, jointaccount.StatusSigned, p.Status)
	})
}

func TestClientDuplicateResponse(t *testing.T) {
	test.WithTestSignRequestServer(t, func(srv *test.SignRequestServer, client *jointaccount.Client) {
		ctx := context.Background()

		srv.Participants = []string{"A", "B", "C"}
		srv.Threshold = 2

		created, err := client.CreateSignRequest(ctx, jointaccount.CreateSignRequestInput{
			JointAddress: "JOINT",
			Proposer:     "A",
		})
		require.NoError(t, err)

		_, err = client.SubmitResponse(ctx, created.ID, "A", jointaccount.SignResponseInput{
			Outcome: jointaccount.OutcomeSigned,
		})
		require.NoError(t, err)

		_, err = client.SubmitResponse(ctx, created.ID, "A", jointaccount.SignResponseInput{
			Outcome: jointaccount.OutcomeDeclined,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, jointaccount.ErrDuplicateResponse))
	})
}

func TestClientSearch(t *testing.T) {
	test.WithTestSignRequestServer(t, func(srv *test.SignRequestServer, client *jointaccount.Client) {
		ctx := context.Background()

		srv.Participants = []string{"A", "B"}
		srv.Threshold = 2

		first, err := client.CreateSignRequest(ctx, jointaccount.CreateSignRequestInput{
			JointAddress: "JOINT1",
			Proposer:     "A",
		})
		require.NoError(t, err)
		_, err = client.CreateSignRequest(ctx, jointaccount.CreateSignRequestInput{
			JointAddress: "JOINT2",
			Proposer:     "A",
		})
		require.NoError(t, err)

		results, err := client.SearchSignRequests(ctx, jointaccount.SearchFilter{
			JointAddresses: []string{"JOINT1"},
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, first.ID, results[0].ID)

		results, err = client.SearchSignRequests(ctx, jointaccount.SearchFilter{
			ParticipantAddresses: []string{"A"},
		})
		require.NoError(t, err)
		assert.Len(t, results, 2)

		results, err = client.SearchSignRequests(ctx, jointaccount.SearchFilter{
			Status: jointaccount.StatusSigned,
		})
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestClientRecordsRoundTrips(t *testing.T) {
	srv := test.NewSignRequestServer(t)
	defer srv.Close()

	reg := prometheus.NewRegistry()
	client, err := jointaccount.NewClient(config.MobileAPIConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 5 * time.Second,
	}, jointaccount.NewMetrics(reg))
	require.NoError(t, err)

	ctx := context.Background()
	created, err := client.CreateSignRequest(ctx, jointaccount.CreateSignRequestInput{
		JointAddress: "JOINT",
		Proposer:     "A",
	})
	require.NoError(t, err)
	_, err = client.GetSignRequest(ctx, created.ID)
	require.NoError(t, err)

	// One series per operation and outcome: create/ok and get/ok.
	count, err := testutil.GatherAndCount(reg, "joint_account_round_trips_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTrackerRespondOnce(t *testing.T) {
	test.WithTestSignRequestServer(t, func(srv *test.SignRequestServer, client *jointaccount.Client) {
		ctx := context.Background()

		srv.Participants = []string{"A", "B", "C"}
		srv.Threshold = 2

		tracker := jointaccount.NewTracker(client, config.MobileAPIConfig{
			PollMinInterval: 5 * time.Millisecond,
			PollMaxInterval: 20 * time.Millisecond,
		})

		created, err := client.CreateSignRequest(ctx, jointaccount.CreateSignRequestInput{
			JointAddress: "JOINT",
			Proposer:     "A",
		})
		require.NoError(t, err)

		_, err = tracker.Respond(ctx, created, "A", jointaccount.SignResponseInput{
			Outcome: jointaccount.OutcomeSigned,
		})
		require.NoError(t, err)

		_, err = tracker.Respond(ctx, created, "A", jointaccount.SignResponseInput{
			Outcome: jointaccount.OutcomeSigned,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, jointaccount.ErrDuplicateResponse))

		_, err = tracker.Respond(ctx, created, "X", jointaccount.SignResponseInput{
			Outcome: jointaccount.OutcomeSigned,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, jointaccount.ErrNotParticipant))
	})
}

func TestTrackerAwaitSettlement(t *testing.T) {
	test.WithTestSignRequestServer(t, func(srv *test.SignRequestServer, client *jointaccount.Client) {
		ctx := context.Background()

		srv.Participants = []string{"A", "B"}
		srv.Threshold = 2

		tracker := jointaccount.NewTracker(client, config.MobileAPIConfig{
			PollMinInterval: 5 * time.Millisecond,
			PollMaxInterval: 20 * time.Millisecond,
		})

		created, err := client.CreateSignRequest(ctx, jointaccount.CreateSignRequestInput{
			JointAddress: "JOINT",
			Proposer:     "A",
		})
		require.NoError(t, err)

		go func() {
			time.Sleep(30 * time.Millisecond)
			_, _ = client.SubmitResponse(ctx, created.ID, "A", jointaccount.SignResponseInput{Outcome: jointaccount.OutcomeSigned})
			_, _ = client.SubmitResponse(ctx, created.ID, "B", jointaccount.SignResponseInput{Outcome: jointaccount.OutcomeSigned})
		}()

		settled, err := tracker.Await(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, jointaccount.StatusSigned, settled.Status)
	})
}

func TestTrackerAwaitExpiry(t *testing.T) {
	test.WithTestSignRequestServer(t, func(srv *test.SignRequestServer, client *jointaccount.Client) {
		ctx := context.Background()

		srv.Participants = []string{"A", "B"}
		srv.Threshold = 2
		srv.TTL = 40 * time.Millisecond

		tracker := jointaccount.NewTracker(client, config.MobileAPIConfig{
			PollMinInterval: 5 * time.Millisecond,
			PollMaxInterval: 20 * time.Millisecond,
		})

		created, err := client.CreateSignRequest(ctx, jointaccount.CreateSignRequestInput{
			JointAddress: "JOINT",
			Proposer:     "A",
		})
		require.NoError(t, err)

		settled, err := tracker.Await(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, jointaccount.StatusExpired, settled.Status)
	})
}
