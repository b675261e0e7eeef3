// Package tasks runs the long operations behind the CLI: graph sync, release tracking and library tools.
//
// # Graph Sync
//
// [SyncEngine] mirrors a user's Spotify neighbourhood into a [repositories.Store] through seven [Job] passes:
//
//  1. friends : configured user ids become Friend-labelled User nodes
//  2. playlists : FOLLOWS from friends and OWNS from owners to Playlist nodes
//  3. songs : INCLUDES from playlists to Song nodes, carrying added_at and added_by
//  4. albums : ON_ALBUM from songs to Album nodes
//  5. artists : RELEASED from artists to albums
//  6. performs : PERFORMS from artists to songs
//  7. genres : GENRE_ASSOC from artists to Genre nodes
//
// Each pass scans anchors that still lack its relationship (or every anchor with [SyncOptions.Full]),
// fetches their remote detail in batches and links them to counterparts. Links to counterparts that
// are not stored yet are queued by key, fetched in one batch and attached once. A batch answer that
// does not line up with the ids asked for aborts the run with [shared.ErrConsistency].
//
// Jobs run in the order given. Running them out of dependency order is harmless: passes without anchors do nothing.
//
// # Releases
//
// [AlbumScanner] lists recent albums per artist and compares the latest album of every saved artist
// against a [ReleaseState] persisted between runs. [CompilationFilter] drops samplers, live albums and reissues.
//
// # Library Tools
//
// [LibraryTools] finds saved songs that are on none of the user's playlists, the playlists that contain
// a given track and the symmetric difference of two playlists.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends never block; updates are dropped when the channel is full.
package tasks
