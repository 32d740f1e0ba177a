// Package generation provides the interfaces for the two external
// collaborators of the job pipeline: the prompt enhancement service and the
// artifact production backend. It abstracts the details of the concrete
// integrations (Gemini text, Imagen) so the core never couples to a
// specific external service.
package generation
