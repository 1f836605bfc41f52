package verify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExplorer struct {
	mu       sync.Mutex
	submit   apiResponse
	statuses []apiResponse
	code     int
	form     map[string]string
	polls    int
}

func (f *fakeExplorer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.code != 0 {
		w.WriteHeader(f.code)
		return
	}
	_ = r.ParseForm()
	switch r.Form.Get("action") {
	case "verifysourcecode":
		f.form = map[string]string{}
		for k := range r.PostForm {
			f.form[k] = r.PostForm.Get(k)
		}
		_ = json.NewEncoder(w).Encode(f.submit)
	case "checkverifystatus":
		resp := apiResponse{Status: "0", Result: "Pending in queue"}
		if f.polls < len(f.statuses) {
			resp = f.statuses[f.polls]
		}
		f.polls++
		_ = json.NewEncoder(w).Encode(resp)
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
	}
}

func constructorInputs(t *testing.T) abi.Arguments {
	t.Helper()
	addrType, err := abi.NewType("address", "", nil)
	require.NoError(t, err)
	return abi.Arguments{{Name: "initialOwner", Type: addrType}}
}

func newTestExplorer(t *testing.T, url string) *Explorer {
	t.Helper()
	e, err := NewExplorer(ExplorerConfig{
		APIURL:            url,
		APIKey:            "key",
		BrowserURL:        "https://basescan.org/",
		ChainID:           8453,
		PollAttempts:      3,
		SourceCode:        "{}",
		CompilerVersion:   "v0.8.20+commit.a1b79de6",
		ConstructorInputs: constructorInputs(t),
	})
	require.NoError(t, err)
	e.sleep = func(context.Context, time.Duration) error { return nil }
	return e
}

func TestExplorerVerifyPasses(t *testing.T) {
	fe := &fakeExplorer{
		submit:   apiResponse{Status: "1", Message: "OK", Result: "guid-1"},
		statuses: []apiResponse{{Status: "0", Result: "Pending in queue"}, {Status: "1", Result: "Pass - Verified"}},
	}
	srv := httptest.NewServer(fe)
	defer srv.Close()

	e := newTestExplorer(t, srv.URL)
	require.NoError(t, e.Verify(context.Background(), testReq))
	assert.Equal(t, 2, fe.polls)

	assert.Equal(t, "key", fe.form["apikey"])
	assert.Equal(t, "8453", fe.form["chainid"])
	assert.Equal(t, testReq.Address.Hex(), fe.form["contractaddress"])
	assert.Equal(t, "src/RewardToken.sol:RewardToken", fe.form["contractname"])
	assert.Equal(t, DefaultCodeFormat, fe.form["codeformat"])
	assert.Equal(t, "000000000000000000000000efd2e9d8e8cf622b3bbb493c97538bdfd9f00b96", fe.form["constructorArguements"])
}

func TestExplorerAlreadyVerifiedOnSubmit(t *testing.T) {
	srv := httptest.NewServer(&fakeExplorer{
		submit: apiResponse{Status: "0", Message: "NOTOK", Result: "Contract source code already verified"},
	})
	defer srv.Close()

	err := newTestExplorer(t, srv.URL).Verify(context.Background(), testReq)
	var fe *FailureError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ClassAlreadyVerified, Classify(err.Error()))
}

func TestExplorerFailVerdictIsFatal(t *testing.T) {
	srv := httptest.NewServer(&fakeExplorer{
		submit:   apiResponse{Status: "1", Result: "guid-2"},
		statuses: []apiResponse{{Status: "0", Message: "NOTOK", Result: "Fail - Unable to verify"}},
	})
	defer srv.Close()

	err := newTestExplorer(t, srv.URL).Verify(context.Background(), testReq)
	require.Error(t, err)
	assert.Equal(t, ClassFatal, Classify(err.Error()))
}

func TestExplorerStuckInQueueIsRetryable(t *testing.T) {
	fe := &fakeExplorer{submit: apiResponse{Status: "1", Result: "guid-3"}}
	srv := httptest.NewServer(fe)
	defer srv.Close()

	err := newTestExplorer(t, srv.URL).Verify(context.Background(), testReq)
	require.Error(t, err)
	assert.Equal(t, 3, fe.polls)
	assert.Equal(t, ClassRetryable, Classify(err.Error()))
}

func TestExplorerHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code int
		want Class
	}{
		{http.StatusBadGateway, ClassRetryable},
		{http.StatusServiceUnavailable, ClassRetryable},
		{http.StatusTooManyRequests, ClassRetryable},
		{http.StatusForbidden, ClassFatal},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(&fakeExplorer{code: tt.code})
		err := newTestExplorer(t, srv.URL).Verify(context.Background(), testReq)
		srv.Close()
		require.Error(t, err, "status %d", tt.code)
		assert.Equal(t, tt.want, Classify(err.Error()), "status %d: %v", tt.code, err)
	}
}

func TestExplorerUnreachableIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := newTestExplorer(t, url).Verify(context.Background(), testReq)
	require.Error(t, err)
	assert.Equal(t, ClassRetryable, Classify(err.Error()), "%v", err)
}

func TestExplorerBadConstructorArgs(t *testing.T) {
	e := newTestExplorer(t, "http://127.0.0.1:1")
	r := testReq
	r.ConstructorArgs = []any{"not an address"}
	err := e.Verify(context.Background(), r)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "invalid constructor arguments"))
	assert.Equal(t, ClassFatal, Classify(err.Error()))
}

func TestExplorerWithVerifier(t *testing.T) {
	srv := httptest.NewServer(&fakeExplorer{
		submit: apiResponse{Status: "0", Result: "Already Verified"},
	})
	defer srv.Close()

	v := New(newTestExplorer(t, srv.URL), Config{MaxAttempts: 3})
	res, err := v.Verify(context.Background(), testReq)
	require.NoError(t, err)
	assert.Equal(t, AlreadyVerified, res.Outcome)
}

func TestAddressURL(t *testing.T) {
	e := newTestExplorer(t, "http://example.invalid")
	assert.Equal(t, "https://basescan.org/address/"+testReq.Address.Hex()+"#code", e.AddressURL(testReq.Address))

	_, err := NewExplorer(ExplorerConfig{})
	assert.Error(t, err)
}
