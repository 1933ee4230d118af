// Package simtest runs a simmurator server inside Go tests.
//
// The server is deterministic by default: sensor values come from a fixed
// seed and sensor polls are neither delayed nor failed.
//
//	func TestClient(t *testing.T) {
//	    sim := simtest.New(t)
//
//	    resp, err := http.Get(sim.URL() + "/api/v1/sensors/temperature")
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    resp.Body.Close()
//
//	    sim.AssertCalled(t, "GET", "/api/v1/sensors/temperature")
//	}
//
// Use WithErrorRate or WithConfig to exercise failure handling, and
// WaitRecorded before inspecting the access log from another goroutine.
package simtest
