// Package model provides the shared building blocks of plantreco estimators.
//
// It defines:
//
//   - StateManager / BaseEstimator: fitted-state tracking, so estimators refuse
//     to transform or predict before Fit
//   - Model persistence: SaveModel / LoadModel write and read fitted estimators
//     with encoding/gob; artifacts are replaced wholesale, never patched
//   - Fingerprint: a content hash used to identify a loaded artifact in logs
//
// Estimators keep all persisted state in exported fields so gob can encode them:
//
//	type MyModel struct {
//		State *model.StateManager
//		// exported, fitted fields
//	}
//
//	func (m *MyModel) Fit(X mat.Matrix, y []string) error {
//		// training logic
//		m.State.SetFitted()
//		return nil
//	}
package model

// EstimatorState represents the learning state of a model
type EstimatorState int

const (
	// NotFitted indicates the model is not yet trained
	NotFitted EstimatorState = iota
	// Fitted indicates the model has been trained
	Fitted
)

// StateManager tracks whether an estimator has been fitted.
// Its field is exported so it survives gob encoding.
type StateManager struct {
	State EstimatorState
}

// NewStateManager returns a StateManager in the NotFitted state.
func NewStateManager() *StateManager {
	return &StateManager{State: NotFitted}
}

// IsFitted returns whether the model has been fitted with training data.
func (s *StateManager) IsFitted() bool {
	return s != nil && s.State == Fitted
}

// SetFitted marks the estimator as fitted (trained).
//
// Called by model implementations at the end of a successful Fit, never by
// end users.
func (s *StateManager) SetFitted() {
	s.State = Fitted
}

// Reset returns the estimator to its initial untrained state.
func (s *StateManager) Reset() {
	s.State = NotFitted
}

// BaseEstimator is embedded by estimators that want IsFitted/SetFitted as
// promoted methods and a type name recorded in their artifact.
type BaseEstimator struct {
	StateManager

	// ModelType identifies the type of model
	ModelType string

	// Version is the artifact format version
	Version string
}
