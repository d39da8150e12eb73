package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// errInvalidInitData is returned by verifyInitData on a missing or
// mismatched hash.
var errInvalidInitData = errors.New("httpapi: invalid initData")

// InitData is the verified subset of the web-view's initData exposed to
// downstream handlers (§6).
type InitData struct {
	UserID   string
	AuthDate int64
	ChatType string
}

// verifyInitData checks raw (the web view's initData query string) against
// botToken per §6: HMAC-SHA-256 of the alphabetically sorted key=value lines
// (all fields except hash, joined by \n), keyed by
// HMAC-SHA-256("WebAppData", botToken). The request-supplied hash must equal
// the computed hex in constant time.
func verifyInitData(raw, botToken string) (InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return InitData{}, errInvalidInitData
	}

	wantHash := values.Get("hash")
	if wantHash == "" {
		return InitData{}, errInvalidInitData
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	dataCheckString := strings.Join(lines, "\n")

	secretMAC := hmac.New(sha256.New, []byte("WebAppData"))
	secretMAC.Write([]byte(botToken))
	secretKey := secretMAC.Sum(nil)

	dataMAC := hmac.New(sha256.New, secretKey)
	dataMAC.Write([]byte(dataCheckString))
	gotHash := hex.EncodeToString(dataMAC.Sum(nil))

	if !hmac.Equal([]byte(gotHash), []byte(strings.ToLower(wantHash))) {
		return InitData{}, errInvalidInitData
	}

	var authDate int64
	if v := values.Get("auth_date"); v != "" {
		authDate, _ = strconv.ParseInt(v, 10, 64)
	}

	userID, chatType := parseInitDataUser(values.Get("user")), values.Get("chat_type")
	return InitData{UserID: userID, AuthDate: authDate, ChatType: chatType}, nil
}

// parseInitDataUser extracts the numeric "id" field from the initData
// "user" parameter's JSON blob without requiring a full user struct
// downstream only needs the id.
func parseInitDataUser(userJSON string) string {
	const marker = `"id":`
	idx := strings.Index(userJSON, marker)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(userJSON[idx+len(marker):])
	end := strings.IndexAny(rest, ",}")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}
