// Package domain models freight lane mileage resolution.
//
// # Lanes
//
// A lane is an (origin, destination) pair of free-text locations such as
// "Chicago, IL" and "Dallas, TX", optionally shaped by intermediate stops,
// a hazmat flag, and an equipment class. Locations are never geocoded here;
// validating that a string names a real place is the routing provider's job.
//
// # Providers
//
// Three routing backends produce a [DistanceResult]:
//
//	pcmiler    practical truck-legal mileage, OAuth client-credentials handshake
//	milemaker  practical mileage, single call, per-leg report summed into one result
//	google     estimated driving distance from a general-purpose directions API
//
// The fallback order is fixed (pcmiler → milemaker → google). The configured
// primary is tried first and removed from the tail of the chain.
//
// # Units
//
//	PracticalMiles, ShortestMiles  whole miles, rounded to the nearest mile
//	DriveTimeHours                 hours, rounded to one decimal place
//	TollCost                       US dollars
//
// ShortestMiles and TollCost are pointers: nil means the provider does not
// report the value, which is not the same as zero.
//
// # Cache Keys
//
// Locations are normalized (trimmed, whitespace runs collapsed, lower-cased)
// and hashed with SHA-256 by [DeriveKey]. A cache entry is identified by
// (origin key, destination key, provider), so results from different
// providers never share a slot and provenance is always recoverable.
package domain
