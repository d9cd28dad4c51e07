package client

import (
	"bufio"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// httpOnlyPrefix marks HttpOnly cookies in files written by curl and browser extensions.
const httpOnlyPrefix = "#HttpOnly_"

// LoadCookies reads a Netscape/Mozilla cookies.txt file into a new jar.
// The file is never written back.
func LoadCookies(path string) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cookie file: %w", err)
	}
	defer f.Close()

	byHost := make(map[string][]*http.Cookie)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		cookie, host, err := parseCookieLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if cookie == nil {
			continue
		}
		byHost[host] = append(byHost[host], cookie)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}

	for host, cookies := range byHost {
		jar.SetCookies(&url.URL{Scheme: "https", Host: host, Path: "/"}, cookies)
	}
	return jar, nil
}

// parseCookieLine parses one tab separated line:
// domain, include-subdomains, path, secure, expiry, name, value.
// Comments and blank lines yield a nil cookie.
func parseCookieLine(line string) (*http.Cookie, string, error) {
	httpOnly := false
	if strings.HasPrefix(line, httpOnlyPrefix) {
		httpOnly = true
		line = strings.TrimPrefix(line, httpOnlyPrefix)
	}
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
		return nil, "", nil
	}

	fields := strings.Split(line, "\t")
	if len(fields) != 7 {
		return nil, "", fmt.Errorf("expected 7 tab separated fields, got %d", len(fields))
	}

	domain := fields[0]
	cookie := &http.Cookie{
		Name:     fields[5],
		Value:    fields[6],
		Path:     fields[2],
		Secure:   strings.EqualFold(fields[3], "TRUE"),
		HttpOnly: httpOnly,
	}
	if strings.EqualFold(fields[1], "TRUE") {
		cookie.Domain = domain
	}
	if expiry, err := strconv.ParseInt(fields[4], 10, 64); err == nil && expiry > 0 {
		cookie.Expires = time.Unix(expiry, 0)
	}

	return cookie, strings.TrimPrefix(domain, "."), nil
}
