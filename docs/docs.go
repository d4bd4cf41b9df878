// Package docs registers the API description with swag so the Swagger UI
// served under /docs can load it.
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed swagger.json
var swaggerJSON string

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Bibliotheca Circulation API",
	Description:      "Lending, reservation and fine tracking for a library catalogue.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  swaggerJSON,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
