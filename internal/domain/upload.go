package domain

// ChunkResult es la respuesta del assembler a un chunk individual.
// Complete se vuelve true exactamente una vez, en el chunk terminal,
// y solo entonces FinalPath contiene la referencia estable del archivo.
type ChunkResult struct {
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	Complete    bool   `json:"complete"`
	FinalPath   string `json:"final_path,omitempty"`
}
