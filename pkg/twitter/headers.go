package twitter

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strconv"
)

// Public bearer token used by the web client for GraphQL requests
const bearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs=1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/113.0.0.0 Safari/537.36"

// GenerateCT0 derives a csrf token the way the web client does: the md5
// hex digest of a small random decimal.
func GenerateCT0() string {
	num := rand.Intn(100000)
	sum := md5.Sum([]byte(strconv.Itoa(num)))
	return hex.EncodeToString(sum[:])
}

// FormatCookies builds the cookie pair the API expects alongside the
// csrf header.
func FormatCookies(authToken, ct0 string) string {
	return fmt.Sprintf("auth_token=%s; ct0=%s", authToken, ct0)
}

// clientHeaders returns the full header template for an authenticated
// client. The ct0 value must match between the cookie and the csrf header.
func clientHeaders(authToken string) map[string]string {
	ct0 := GenerateCT0()
	return map[string]string{
		"authorization":             "Bearer " + bearerToken,
		"referer":                   "https://twitter.com/",
		"user-agent":                defaultUserAgent,
		"x-twitter-auth-type":       "OAuth2Session",
		"x-twitter-active-user":     "yes",
		"x-twitter-client-language": "en",
		"x-csrf-token":              ct0,
		"cookie":                    FormatCookies(authToken, ct0),
	}
}
