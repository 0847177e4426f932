// Package watchlist holds the set of watched users and the relay's destination
// channels, persisted as a single JSON document.
package watchlist

import "slices"

// WatchConfig is an immutable snapshot of the watch list. Methods that change
// it return a new value.
type WatchConfig struct {
	WatchedUsers    []string `json:"watchedUsers"`
	TargetChannelID string   `json:"targetChannelId"`
	LogChannelID    string   `json:"logChannelId"`
}

// Default returns the empty configuration.
func Default() WatchConfig {
	return WatchConfig{WatchedUsers: []string{}}
}

// Contains reports whether userID is watched.
func (c WatchConfig) Contains(userID string) bool {
	return slices.Contains(c.WatchedUsers, userID)
}

// WithUser returns a copy with userID appended. The second result is false if
// the user was already present, in which case the copy equals c.
func (c WatchConfig) WithUser(userID string) (WatchConfig, bool) {
	out := c.clone()
	if c.Contains(userID) {
		return out, false
	}
	out.WatchedUsers = append(out.WatchedUsers, userID)
	return out, true
}

// WithoutUser returns a copy with userID removed.
func (c WatchConfig) WithoutUser(userID string) (WatchConfig, bool) {
	out := c.clone()
	n := len(out.WatchedUsers)
	out.WatchedUsers = slices.DeleteFunc(out.WatchedUsers, func(id string) bool { return id == userID })
	return out, len(out.WatchedUsers) != n
}

// WithTarget returns a copy with the target channel set.
func (c WatchConfig) WithTarget(channelID string) WatchConfig {
	out := c.clone()
	out.TargetChannelID = channelID
	return out
}

// WithLog returns a copy with the audit log channel set.
func (c WatchConfig) WithLog(channelID string) WatchConfig {
	out := c.clone()
	out.LogChannelID = channelID
	return out
}

func (c WatchConfig) clone() WatchConfig {
	out := c
	out.WatchedUsers = make([]string, len(c.WatchedUsers))
	copy(out.WatchedUsers, c.WatchedUsers)
	return out
}

// normalize drops empty and duplicate ids, keeping first occurrence order.
func (c WatchConfig) normalize() WatchConfig {
	out := c
	out.WatchedUsers = make([]string, 0, len(c.WatchedUsers))
	seen := make(map[string]struct{}, len(c.WatchedUsers))
	for _, id := range c.WatchedUsers {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out.WatchedUsers = append(out.WatchedUsers, id)
	}
	return out
}
