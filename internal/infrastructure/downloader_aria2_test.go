package infrastructure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbhjt-gr/inferra-sub000/internal/domain"
)

// newAria2Stub starts a JSON-RPC stub and returns a client pointed at it
// along with the captured requests.
func newAria2Stub(t *testing.T, secret string, respond func(method string, params []interface{}) (interface{}, *jsonRPCError)) (*Aria2Client, *[]jsonRPCRequest) {
	t.Helper()

	var requests []jsonRPCRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		result, rpcErr := respond(req.Method, req.Params)
		resp := map[string]interface{}{"id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)

	client := NewAria2Client(&domain.Aria2Config{
		RPCUrl:      server.URL,
		Secret:      secret,
		DownloadDir: "/models",
	}, nil)
	return client, &requests
}

func TestGID(t *testing.T) {
	assert.Equal(t, "0000000000000007", GID(7))
	assert.Equal(t, "00000000000004d2", GID(1234))
}

func TestCheckStatus_Active(t *testing.T) {
	client, _ := newAria2Stub(t, "", func(method string, params []interface{}) (interface{}, *jsonRPCError) {
		assert.Equal(t, "aria2.tellStatus", method)
		return map[string]string{
			"status":          "active",
			"completedLength": "524288000",
			"totalLength":     "1048576000",
		}, nil
	})

	snapshot, err := client.CheckStatus(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDownloading, snapshot.Status)
	assert.Equal(t, int64(524288000), snapshot.BytesDownloaded)
	assert.Equal(t, int64(1048576000), snapshot.TotalBytes)
}

func TestCheckStatus_StatusMapping(t *testing.T) {
	tests := []struct {
		aria2    string
		expected domain.DownloadStatus
	}{
		{"active", domain.StatusDownloading},
		{"waiting", domain.StatusQueued},
		{"paused", domain.StatusQueued},
		{"complete", domain.StatusCompleted},
		{"error", domain.StatusFailed},
		{"removed", domain.StatusUnknown},
		{"something-new", domain.StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.aria2, func(t *testing.T) {
			client, _ := newAria2Stub(t, "", func(method string, params []interface{}) (interface{}, *jsonRPCError) {
				return map[string]string{
					"status":          tt.aria2,
					"completedLength": "0",
					"totalLength":     "0",
				}, nil
			})

			snapshot, err := client.CheckStatus(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, snapshot.Status)
		})
	}
}

func TestCheckStatus_RPCError(t *testing.T) {
	client, _ := newAria2Stub(t, "", func(method string, params []interface{}) (interface{}, *jsonRPCError) {
		return nil, &jsonRPCError{Code: 1, Message: "GID not found"}
	})

	_, err := client.CheckStatus(context.Background(), 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GID not found")
}

func TestCheckStatus_SecretIsFirstParam(t *testing.T) {
	client, requests := newAria2Stub(t, "s3cret", func(method string, params []interface{}) (interface{}, *jsonRPCError) {
		return map[string]string{
			"status":          "active",
			"completedLength": "1",
			"totalLength":     "2",
		}, nil
	})

	_, err := client.CheckStatus(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	params := (*requests)[0].Params
	require.NotEmpty(t, params)
	assert.Equal(t, "token:s3cret", params[0])
	assert.Equal(t, GID(7), params[1])
}

func TestCancelTransfer(t *testing.T) {
	client, requests := newAria2Stub(t, "", func(method string, params []interface{}) (interface{}, *jsonRPCError) {
		assert.Equal(t, "aria2.remove", method)
		return GID(5), nil
	})

	require.NoError(t, client.CancelTransfer(context.Background(), 5))

	require.Len(t, *requests, 1)
	assert.Equal(t, GID(5), (*requests)[0].Params[0])
}

func TestSubmit(t *testing.T) {
	client, requests := newAria2Stub(t, "", func(method string, params []interface{}) (interface{}, *jsonRPCError) {
		assert.Equal(t, "aria2.addUri", method)
		return GID(11), nil
	})

	err := client.Submit(context.Background(), 11, "https://example.com/model-a.gguf")
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	params := (*requests)[0].Params

	uris, ok := params[0].([]interface{})
	require.True(t, ok)
	assert.Equal(t, "https://example.com/model-a.gguf", uris[0])

	options, ok := params[1].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, GID(11), options["gid"])
	assert.Equal(t, "/models", options["dir"])
}
