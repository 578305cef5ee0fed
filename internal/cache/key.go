// Package cache provides the two-tier result cache: an in-process LRU
// in front of an optional Redis tier, with TTLs and tag invalidation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"planforge/pkg/types"
)

// CommandKey derives the stable cache key for a command. Two requests
// that differ only in correlation id share a key; prompt whitespace is
// normalized so formatting differences do not fragment the cache.
func CommandKey(cmd *types.AICommand) string {
	h := sha256.New()

	h.Write([]byte(string(cmd.TaskType)))
	h.Write([]byte{0})
	h.Write([]byte(normalizePrompt(cmd.PromptText)))
	h.Write([]byte{0})
	h.Write([]byte(cmd.Locale))
	h.Write([]byte{0})
	h.Write([]byte(cmd.Language))
	h.Write([]byte{0})
	h.Write([]byte(string(cmd.Complexity)))
	h.Write([]byte{0})
	h.Write([]byte(cmd.FileFormat))
	h.Write([]byte{0})
	h.Write(canonicalContext(cmd.Context))

	return "cmd:" + hex.EncodeToString(h.Sum(nil))
}

// ResultKey addresses a stored result by correlation id for later lookup
func ResultKey(correlationID string) string {
	return "result:" + correlationID
}

// TenantTag tags entries for per-tenant invalidation
func TenantTag(tenantID string) string { return "tenant:" + tenantID }

// TierTag tags entries by subscription tier
func TierTag(tier types.SubscriptionTier) string { return "tier:" + string(tier) }

// normalizePrompt collapses whitespace runs and trims the prompt
func normalizePrompt(prompt string) string {
	return strings.Join(strings.Fields(prompt), " ")
}

// canonicalContext serializes the context map with sorted keys
func canonicalContext(ctx map[string]interface{}) []byte {
	if len(ctx) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		// json encoding gives stable representations for nested values
		if raw, err := json.Marshal(ctx[k]); err == nil {
			sb.Write(raw)
		}
		sb.WriteByte(';')
	}
	return []byte(sb.String())
}
