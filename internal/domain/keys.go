package domain

// KeyPrefix namespaces every key vidrank writes to the shared store.
const KeyPrefix = "vidrank:"
