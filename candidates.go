package gcs

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// DefaultAltPort is the port the camera serves its MJPEG stream on.
const DefaultAltPort = 81

// BuildCandidates derives the candidate URL list from the caller's URL.
//
// Order:
//  1. the caller's URL as given
//  2. the caller's URL with the alternate port removed
//  3. http://<host>:<altPort>/stream
//  4. http://<host>/stream
//
// host defaults to the caller URL's hostname. Duplicates are dropped,
// keeping the first occurrence.
func BuildCandidates(streamURL, host string, altPort int) ([]string, error) {
	u, err := url.Parse(streamURL)
	if err != nil {
		return nil, fmt.Errorf("gcs: invalid stream URL %q: %w", streamURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gcs: stream URL %q must be absolute (http://host[:port]/path)", streamURL)
	}
	if altPort <= 0 {
		altPort = DefaultAltPort
	}
	if host == "" {
		host = u.Hostname()
	}

	withoutPort := *u
	if u.Port() == strconv.Itoa(altPort) {
		withoutPort.Host = hostOnly(u)
	}

	candidates := []string{
		streamURL,
		withoutPort.String(),
		"http://" + net.JoinHostPort(host, strconv.Itoa(altPort)) + "/stream",
		"http://" + hostForURL(host) + "/stream",
	}

	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// hostOnly returns u's host without port, re-bracketing IPv6 literals.
func hostOnly(u *url.URL) string {
	return hostForURL(u.Hostname())
}

func hostForURL(h string) string {
	if ip := net.ParseIP(h); ip != nil && ip.To4() == nil {
		return "[" + h + "]"
	}
	return h
}

// Rotation hands out candidates fairly: every candidate is tried once
// before any repeats, then the tried-set resets and rotation starts over.
// Not safe for concurrent use; the supervisor owns it.
type Rotation struct {
	candidates []string
	tried      map[string]bool
	rounds     int
}

// NewRotation creates a rotation over candidates (must be non-empty).
func NewRotation(candidates []string) *Rotation {
	return &Rotation{
		candidates: candidates,
		tried:      make(map[string]bool, len(candidates)),
	}
}

// Next returns the next not-yet-tried candidate.
func (r *Rotation) Next() string {
	for _, c := range r.candidates {
		if !r.tried[c] {
			r.tried[c] = true
			return c
		}
	}

	r.tried = make(map[string]bool, len(r.candidates))
	r.rounds++
	c := r.candidates[0]
	r.tried[c] = true
	return c
}

// Rounds returns how many times the rotation has wrapped around.
func (r *Rotation) Rounds() int { return r.rounds }

// Candidates returns the rotation list.
func (r *Rotation) Candidates() []string { return r.candidates }
