package rest

const (
	MIME_JSON  = "application/json"         // Accept or Content-Type used in Consumes() and/or Produces()
	MIME_OCTET = "application/octet-stream" // If Content-Type is not present in request, use the default

	HEADER_Allow       = "Allow"
	HEADER_Accept      = "Accept"
	HEADER_ContentType = "Content-Type"
)
