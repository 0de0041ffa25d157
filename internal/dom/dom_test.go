package dom

import "testing"

func buildTree() (root, mid, leaf *Element) {
	root = NewElement("root")
	mid = NewElement("mid")
	leaf = NewElement("leaf")
	root.AppendChild(mid)
	mid.AppendChild(leaf)
	return root, mid, leaf
}

func TestContains(t *testing.T) {
	root, mid, leaf := buildTree()
	other := NewElement("other")

	if !root.Contains(root) {
		t.Fatal("containment should be reflexive")
	}
	if !root.Contains(leaf) || !mid.Contains(leaf) {
		t.Fatal("ancestors should contain descendants")
	}
	if leaf.Contains(root) {
		t.Fatal("descendant should not contain ancestor")
	}
	if root.Contains(other) {
		t.Fatal("unrelated node reported as contained")
	}
	if root.Contains(nil) {
		t.Fatal("nil node reported as contained")
	}
}

func TestAppendChildReparents(t *testing.T) {
	root, mid, leaf := buildTree()

	root.AppendChild(leaf)
	if mid.Contains(leaf) {
		t.Fatal("leaf should have left its old parent")
	}
	if leaf.Parent() != root {
		t.Fatal("leaf should now be parented to root")
	}
}

func TestDispatchOrderAndTarget(t *testing.T) {
	el := NewElement("el")

	var order []string
	var target Node
	first := NewCallback(func(ev Event) {
		order = append(order, "first")
		target = ev.Target
	})
	second := NewCallback(func(ev Event) { order = append(order, "second") })

	el.AddListener("click", first)
	el.AddListener("click", second)
	el.Dispatch(Event{Name: "click"})

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("dispatch order = %v", order)
	}
	if target != el {
		t.Fatal("dispatch should default Target to the element")
	}
}

func TestRemoveListener(t *testing.T) {
	el := NewElement("el")

	calls := 0
	cb := NewCallback(func(ev Event) { calls++ })

	el.AddListener("click", cb)
	el.RemoveListener("click", cb)
	el.Dispatch(Event{Name: "click"})

	if calls != 0 {
		t.Fatalf("removed listener fired %d times", calls)
	}

	// Removing a never-attached pair is a no-op.
	el.RemoveListener("click", cb)
	el.RemoveListener("keydown", NewCallback(func(Event) {}))
}

func TestListenerCount(t *testing.T) {
	el := NewElement("el")
	if el.ListenerCount("click") != 0 {
		t.Fatal("fresh element should have no listeners")
	}

	cb := NewCallback(func(Event) {})
	el.AddListener("click", cb)
	if el.ListenerCount("click") != 1 {
		t.Fatalf("expected 1 listener, got %d", el.ListenerCount("click"))
	}
}

func TestNilCallbackInvoke(t *testing.T) {
	var cb *Callback
	cb.Invoke(Event{Name: "click"}) // must not panic
}
