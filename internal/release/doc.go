// Package release computes release versions from Conventional Commits and
// manages the version tags and manifest changes that go with them.
//
// Standard releases are tagged vMAJOR.MINOR.PATCH. Builds from other branches
// get a pre-release tag of the form vMAJOR.MINOR.PATCH.alpha-YYYYMMDDHHmmssSSS,
// which is cleaned up once the branch is merged.
package release
