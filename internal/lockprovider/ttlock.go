package lockprovider

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBaseURL = "https://euapi.ttlock.com"
	DefaultTimeout = 10 * time.Second

	// Refresh the access token this long before the platform expires it.
	tokenRefreshMargin = 5 * time.Minute

	passcodeAddTypeGateway   = "2"
	passcodeTypeTimeLimited  = "3"
	listPageSize             = 100
	maxListPages             = 50
	defaultCredentialRemarks = "Hotel Room Access"
)

// Platform error codes that point at setup problems rather than transient failures.
var configErrorCodes = map[int]bool{
	10003: true, // invalid access token
	10004: true, // invalid grant
	-2012: true, // lock is not connected to a gateway
	-3003: true, // receiver account is not registered
}

var md5Hex = regexp.MustCompile(`^[a-fA-F0-9]{32}$`)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Timeout      time.Duration
}

// Missing lists the credential fields that are empty.
func (c Config) Missing() []string {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	return missing
}

// TTLockClient implements Provider against the TTLock cloud open API.
type TTLockClient struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
	newPIN     func() (string, error)

	mu             sync.Mutex
	accessToken    string
	tokenExpiresAt time.Time
}

func NewTTLockClient(cfg Config, httpClient *http.Client) (*TTLockClient, error) {
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, &Error{Op: "configure", Kind: KindConfig, Message: "missing " + strings.Join(missing, ", ")}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &TTLockClient{cfg: cfg, httpClient: httpClient, now: time.Now, newPIN: randomPIN}, nil
}

type passcodeEntry struct {
	KeyboardPwdID   int64  `json:"keyboardPwdId"`
	KeyboardPwd     string `json:"keyboardPwd"`
	KeyboardPwdName string `json:"keyboardPwdName"`
	StartDate       int64  `json:"startDate"`
	EndDate         int64  `json:"endDate"`
}

func (c *TTLockClient) CreatePasscode(ctx context.Context, lockID string, start, end time.Time, label string) (Passcode, error) {
	pin, err := c.newPIN()
	if err != nil {
		return Passcode{}, &Error{Op: "create passcode", Kind: KindUnavailable, Err: err}
	}
	if label == "" {
		label = "Guest"
	}

	var resp struct {
		KeyboardPwdID int64 `json:"keyboardPwdId"`
	}
	err = c.call(ctx, "create passcode", http.MethodPost, "/v3/keyboardPwd/add", url.Values{
		"lockId":          {lockID},
		"keyboardPwd":     {pin},
		"keyboardPwdName": {label},
		"startDate":       {millis(start)},
		"endDate":         {millis(end)},
		"addType":         {passcodeAddTypeGateway},
		"keyboardPwdType": {passcodeTypeTimeLimited},
	}, &resp)
	if err != nil {
		return Passcode{}, err
	}
	return Passcode{Code: pin, RemoteID: strconv.FormatInt(resp.KeyboardPwdID, 10)}, nil
}

func (c *TTLockClient) DeletePasscode(ctx context.Context, lockID, remoteID string) error {
	return c.call(ctx, "delete passcode", http.MethodPost, "/v3/keyboardPwd/delete", url.Values{
		"lockId":        {lockID},
		"keyboardPwdId": {remoteID},
	}, nil)
}

func (c *TTLockClient) RemoteUnlock(ctx context.Context, lockID string) error {
	return c.call(ctx, "unlock", http.MethodPost, "/v3/lock/unlock", url.Values{"lockId": {lockID}}, nil)
}

func (c *TTLockClient) SendCredentialToGuestApp(ctx context.Context, lockID, guestIdentity string, start, end time.Time, remarks string) (string, error) {
	if remarks == "" {
		remarks = defaultCredentialRemarks
	}
	var resp struct {
		KeyID int64 `json:"keyId"`
	}
	err := c.call(ctx, "send ekey", http.MethodPost, "/v3/key/send", url.Values{
		"lockId":           {lockID},
		"receiverUsername": {guestIdentity},
		"startDate":        {millis(start)},
		"endDate":          {millis(end)},
		"remarks":          {remarks},
	}, &resp)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(resp.KeyID, 10), nil
}

// FindPasscode walks the lock's passcode list page by page looking for one with the
// given label and validity window.
func (c *TTLockClient) FindPasscode(ctx context.Context, lockID, label string, start, end time.Time) (*Passcode, error) {
	for page := 1; page <= maxListPages; page++ {
		var resp struct {
			List  []passcodeEntry `json:"list"`
			Pages int             `json:"pages"`
		}
		err := c.call(ctx, "list passcodes", http.MethodGet, "/v3/lock/listKeyboardPwd", url.Values{
			"lockId":   {lockID},
			"pageNo":   {strconv.Itoa(page)},
			"pageSize": {strconv.Itoa(listPageSize)},
		}, &resp)
		if err != nil {
			return nil, err
		}
		for _, p := range resp.List {
			if p.KeyboardPwdName == label && p.StartDate == start.UnixMilli() && p.EndDate == end.UnixMilli() {
				return &Passcode{Code: p.KeyboardPwd, RemoteID: strconv.FormatInt(p.KeyboardPwdID, 10)}, nil
			}
		}
		if len(resp.List) == 0 || page >= resp.Pages {
			return nil, nil
		}
	}
	return nil, nil
}

func (c *TTLockClient) call(ctx context.Context, op, method, endpoint string, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	params.Set("clientId", c.cfg.ClientID)
	params.Set("accessToken", token)
	params.Set("date", millis(c.now()))

	var req *http.Request
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return &Error{Op: op, Kind: KindRejected, Err: err}
	}

	body, err := c.do(op, req)
	if err != nil {
		return err
	}

	var envelope struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &Error{Op: op, Kind: KindUnavailable, Message: "malformed response", Err: err}
	}
	if envelope.ErrCode != 0 {
		kind := KindRejected
		if configErrorCodes[envelope.ErrCode] {
			kind = KindConfig
		}
		if envelope.ErrCode == 10003 {
			c.dropToken()
		}
		return &Error{Op: op, Kind: kind, Code: envelope.ErrCode, Message: envelope.ErrMsg}
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return &Error{Op: op, Kind: KindUnavailable, Message: "malformed response", Err: err}
		}
	}
	return nil
}

func (c *TTLockClient) do(op string, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := KindUnavailable
		if isTimeout(err) {
			kind = KindAmbiguous
		}
		return nil, &Error{Op: op, Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		kind := KindUnavailable
		if isTimeout(err) {
			kind = KindAmbiguous
		}
		return nil, &Error{Op: op, Kind: kind, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{Op: op, Kind: KindConfig, Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	case resp.StatusCode >= 500:
		return nil, &Error{Op: op, Kind: KindUnavailable, Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	case resp.StatusCode >= 300:
		return nil, &Error{Op: op, Kind: KindRejected, Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func (c *TTLockClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiresAt) {
		return c.accessToken, nil
	}

	password := c.cfg.Password
	if !md5Hex.MatchString(password) {
		sum := md5.Sum([]byte(password))
		password = hex.EncodeToString(sum[:])
	}

	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"username":      {c.cfg.Username},
		"password":      {password},
		"grant_type":    {"password"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &Error{Op: "authenticate", Kind: KindConfig, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do("authenticate", req)
	if err != nil {
		return "", err
	}

	var data struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		ErrCode     int    `json:"errcode"`
		ErrMsg      string `json:"errmsg"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", &Error{Op: "authenticate", Kind: KindUnavailable, Message: "malformed response", Err: err}
	}
	if data.ErrCode != 0 || data.AccessToken == "" {
		return "", &Error{Op: "authenticate", Kind: KindConfig, Code: data.ErrCode, Message: data.ErrMsg}
	}

	c.accessToken = data.AccessToken
	c.tokenExpiresAt = c.now().Add(time.Duration(data.ExpiresIn)*time.Second - tokenRefreshMargin)
	return c.accessToken, nil
}

func (c *TTLockClient) dropToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// randomPIN returns a six-digit numeric code without a leading zero.
func randomPIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

var _ Provider = (*TTLockClient)(nil)
