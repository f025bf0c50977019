// Package models defines the core domain models for groupcal.
//
// # Models
//
//   - User: registered account, identified by a UUID
//   - Group: shared calendar group with a members map and an optional invite code
//   - GroupUpdate: partial update applied by the storage layer
//
// # Design Principles
//
// 1. **Store-agnostic**: models carry no tags; each storage adapter maps them to its own rows or documents
// 2. **Avoid circular references**: relationships use ID strings instead of pointers
// 3. **Membership is a set**: Group.Members is keyed by user ID, so document stores can keep it as a single map field
package models
