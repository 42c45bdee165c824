// Package models defines the core domain models for caltrack.
//
// # Models
//
//   - Profile: the signed-in user's demographic data and daily energy target
//   - FoodEntry: one logged food item, owned by exactly one DailyLog
//   - DailyLog: all food entries of one calendar day plus per-meal totals
//   - WeightEntry: one body-weight measurement (append-only)
//   - UserDocument: the persisted shape of a user's profile, logs and weights
//   - User: an account known to the identity service
//
// # Design Principles
//
// 1. **Derived fields are recomputed, never edited**: DailyLog calorie totals
// come from its entries, Profile.DailyEnergyTarget from the body fields.
// 2. **Value semantics**: readers receive copies, so handing a DailyLog to a
// caller can never alias ledger state.
// 3. **IDs are opaque strings** (UUID format), as are calendar-day keys.
package models
