package utils

import "time"

// OfferInboxPrefix is the prefix used for Redis offer-inbox cache keys.
const OfferInboxPrefix = "offer-inbox:"

// OfferInboxTTL is the time-to-live for cached offer-inbox entries. Kept
// short: the inbox changes whenever an offer cascades.
const OfferInboxTTL = 15 * time.Second
