package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/johnquangdev/focus-group-analyzer/internal/domain/entities"
)

// Projector artifact names, laid out the way the TensorBoard embedding projector reads them
const (
	projectorMetadataFile = "metadata.tsv"
	projectorTensorsFile  = "tensors.tsv"
	projectorConfigFile   = "projector_config.json"
)

type projectorEmbedding struct {
	TensorName   string `json:"tensorName"`
	TensorShape  []int  `json:"tensorShape"`
	TensorPath   string `json:"tensorPath"`
	MetadataPath string `json:"metadataPath"`
}

type projectorConfig struct {
	Embeddings []projectorEmbedding `json:"embeddings"`
}

// projectorArtifacts are the files of one embedding projection
type projectorArtifacts struct {
	logDir     string
	metadata   []byte
	tensors    []byte
	config     []byte
	points     int
	dimensions int
}

// embeddingLogDir is embeddings/{corp}/{meeting}/{question|all}
func embeddingLogDir(scope entities.AnalysisScope) string {
	leaf := "all"
	if scope.QuestionID != nil {
		leaf = strconv.FormatInt(*scope.QuestionID, 10)
	}
	return path.Join("embeddings",
		strconv.FormatInt(scope.CorpID, 10),
		strconv.FormatInt(scope.MeetingID, 10),
		leaf)
}

func buildProjector(scope entities.AnalysisScope, labels []string, vectors [][]float64) (*projectorArtifacts, error) {
	if len(labels) != len(vectors) {
		return nil, fmt.Errorf("%d labels for %d vectors", len(labels), len(vectors))
	}
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}

	var metadata, tensors bytes.Buffer
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("vector %d has %d dimensions, want %d", i, len(v), dims)
		}
		metadata.WriteString(tsvField(labels[i]))
		metadata.WriteByte('\n')

		for j, x := range v {
			if j > 0 {
				tensors.WriteByte('\t')
			}
			tensors.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
		}
		tensors.WriteByte('\n')
	}

	logDir := embeddingLogDir(scope)
	cfg, err := json.MarshalIndent(projectorConfig{Embeddings: []projectorEmbedding{{
		TensorName:   strings.ReplaceAll(logDir, "/", "_"),
		TensorShape:  []int{len(vectors), dims},
		TensorPath:   projectorTensorsFile,
		MetadataPath: projectorMetadataFile,
	}}}, "", "  ")
	if err != nil {
		return nil, err
	}

	return &projectorArtifacts{
		logDir:     logDir,
		metadata:   metadata.Bytes(),
		tensors:    tensors.Bytes(),
		config:     cfg,
		points:     len(vectors),
		dimensions: dims,
	}, nil
}

// tsvField keeps a label on one TSV cell
func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}
