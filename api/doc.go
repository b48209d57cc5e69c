// Package api serves the LaserStrike console: a small REST API over the
// local player session plus the admin and spectator views of the backend.
//
// Endpoints:
//
// Status:
//   - GET /api/health - Console and backend health
//   - GET /api/status - Player, route, connection and local client count
//
// Player:
//   - GET /api/player - The registered local player
//   - POST /api/register - Register {id, name} and connect
//   - POST /api/strike - Send {image} (base64 JPEG, data URI accepted);
//     ?wait=true blocks for the backend verdict
//   - POST /api/exit - Forget the player and disconnect
//
// Admin:
//   - GET /api/leaderboard - Players ranked by kills*100 + deaths*10
//   - GET /api/snapshots - Captured image URLs
//   - POST /api/admin/reset - Reset the game for everyone
//
// Local UIs:
//   - GET /ws?view=player|spectator|admin - Event stream
//   - GET /qr?view=... - PNG QR code of the console URL for phones
package api
