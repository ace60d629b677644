// Package lixiv is a typed property graph with a kind catalog.
//
// # Overview
//
// Lixiv keeps a catalog of kinds, validates node documents against it and
// stores the nodes with labeled edges between them. When the graph is
// assembled, nodes with the same display name collapse into one and so do
// edges between the same pair of nodes.
//
// The platform consists of three main components:
//   - Kind Catalog: single-inheritance kinds with typed JSON fields
//   - API Server: REST API and WebSocket change stream
//   - Storage Layer: SQLite or PostgreSQL via database/sql
//
// # Architecture
//
//	┌─────────────────┐       ┌─────────────────┐
//	│   lixiv CLI     │──────►│  API Server     │
//	│  (Cobra)        │       │  (Echo REST/WS) │
//	└────────┬────────┘       └────────┬────────┘
//	         │                         │
//	┌────────▼─────────────────────────▼────────┐
//	│  Kind Catalog + Validation + Graph        │
//	└────────────────────┬──────────────────────┘
//	                     │
//	┌────────────────────▼──────────────────────┐
//	│  Storage Layer (SQLite / PostgreSQL)      │
//	└───────────────────────────────────────────┘
//
// # Usage
//
// Print the built-in food scenario:
//
//	lixiv demo
//	lixiv demo --jsonld
//
// Check a kinds file and validate a node document against it:
//
//	lixiv kind check kinds.yaml
//	lixiv validate kinds.yaml node.json
//
// Start the API server, importing a kinds file on startup:
//
//	lixiv server --config config.yaml
//
// Export the stored graph:
//
//	lixiv graph export -f jsonld --expand
//
// Scan and repair the stored graph:
//
//	lixiv integrity scan
//	lixiv integrity repair --dry-run=false
//
// # Configuration
//
// Configuration can be provided via:
//   - YAML file (config.yaml, see lixiv config init)
//   - Environment variables (LX_ prefix, e.g. LX_DATABASE_DSN)
//
// Example configuration:
//
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	database:
//	  dsn: lixiv.db
//	catalog:
//	  file: kinds.yaml
//	  inherit_fields: false
//	security:
//	  auth_enabled: true
//	  jwt_secret: change-me
//
// # API Endpoints
//
// Kinds:
//   - GET    /api/v1/kinds          - List kinds (ETag = catalog fingerprint)
//   - GET    /api/v1/kinds/:title   - Get kind
//   - POST   /api/v1/kinds          - Register kind
//   - DELETE /api/v1/kinds/:title   - Delete kind
//
// Nodes and edges:
//   - GET    /api/v1/nodes          - List nodes (?kind=, ?name=, paginated)
//   - GET    /api/v1/nodes/:id      - Get node
//   - POST   /api/v1/nodes          - Create node (validated)
//   - DELETE /api/v1/nodes/:id      - Delete node and its edges
//   - GET    /api/v1/edges          - List edges (paginated)
//   - POST   /api/v1/edges          - Create edge
//   - DELETE /api/v1/edges/:id      - Delete edge
//   - POST   /api/v1/validate       - Validate a node document
//
// Graph:
//   - GET /api/v1/graph          - Deduplicated graph
//   - GET /api/v1/graph/stats    - Stored and unique counts
//   - GET /api/v1/graph/jsonld   - JSON-LD document (?expand=true)
//
// WebSocket:
//   - GET /api/v1/ws/graph    - Real-time graph updates
//   - GET /api/v1/ws/stats    - WebSocket statistics
//
// # JSON-LD
//
// Each node is typed by its kind and each edge becomes a property named by
// its label:
//
//	{
//	  "@context": {"@vocab": "https://lixiv.evalgo.org/vocab#"},
//	  "@graph": [
//	    {
//	      "@id": "urn:uuid:...",
//	      "@type": "Food",
//	      "name": "Lasagne",
//	      "has-ingredient": {"@id": "urn:uuid:..."}
//	    }
//	  ]
//	}
//
// # Development
//
// Run tests:
//
//	go test ./...
//
// Build the binary:
//
//	go build -o lixiv ./cmd/lixiv
package lixiv
