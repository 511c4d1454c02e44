// Package core provides the file tools: listing, reading, writing and
// patching files under the session workspace. Writing and patching are
// gated by the read-before-write policy tracked on the workspace.
package core
