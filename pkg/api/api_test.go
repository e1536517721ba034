package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterCounts_KeepOrder(t *testing.T) {
	resp := ClustersResponse{
		Clusters:      ClusterCounts{{"Zeta", 3}, {"Alpha \"quoted\"", 1}, {"Mid", 2}},
		TotalClusters: 3,
	}

	data, err := json.Marshal(resp)

	require.NoError(t, err)
	assert.Equal(t, `{"clusters":{"Zeta":3,"Alpha \"quoted\"":1,"Mid":2},"totalClusters":3}`, string(data))
}

func TestClusterCounts_Empty(t *testing.T) {
	data, err := json.Marshal(ClustersResponse{})
	require.NoError(t, err)
	assert.Equal(t, `{"clusters":{},"totalClusters":0}`, string(data))
}

func TestCategoryNode_NullParent(t *testing.T) {
	data, err := json.Marshal(CategoryNode{ID: "c1", Name: "Root", Children: []CategoryNode{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1","name":"Root","parentId":null,"children":[]}`, string(data))
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusOK, DensityResponse{Value: 40, Level: "medium"})
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"value":40,"level":"medium"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Success(rec, http.StatusNoContent, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
