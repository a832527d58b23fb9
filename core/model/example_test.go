package model_test

import (
	"fmt"

	"github.com/ezoic/plantreco/core/model"
)

// ExampleStateManager demonstrates fitted-state management
func ExampleStateManager() {
	state := model.NewStateManager()

	fmt.Printf("Initially fitted: %t\n", state.IsFitted())

	state.SetFitted()
	fmt.Printf("After SetFitted: %t\n", state.IsFitted())

	state.Reset()
	fmt.Printf("After Reset: %t\n", state.IsFitted())

	// Output: Initially fitted: false
	// After SetFitted: true
	// After Reset: false
}

// ExampleBaseEstimator_workflowPattern demonstrates typical usage pattern
func ExampleBaseEstimator_workflowPattern() {
	type MyModel struct {
		model.BaseEstimator
	}

	myModel := &MyModel{}

	if !myModel.IsFitted() {
		fmt.Println("Model needs training")
		myModel.SetFitted()
		fmt.Println("Model trained successfully")
	}

	if myModel.IsFitted() {
		fmt.Println("Model is ready for predictions")
	}

	// Output: Model needs training
	// Model trained successfully
	// Model is ready for predictions
}
