package containerid

// GetOutput is written verbatim: huma sends a []byte body without encoding it.
type GetOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}
