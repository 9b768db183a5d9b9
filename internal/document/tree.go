package document

import (
	"errors"
	"slices"
	"sort"
	"strings"
)

var (
	ErrLayerNotFound  = errors.New("layer not found")
	ErrParentNotFound = errors.New("parent not found")
	ErrBaseLayer      = errors.New("base layer cannot be restructured")
	ErrCycle          = errors.New("layer cannot become a child of its own descendant")
	ErrNotGroup       = errors.New("layer is not a group")
	ErrTooFewLayers   = errors.New("at least two non-base layers are required")
	ErrDuplicateID    = errors.New("layer id already exists")
)

// IDFactory mints fresh layer ids for operations that create layers.
type IDFactory func() string

// TreeNode is an index view over the flat layer list, rebuilt on demand.
type TreeNode struct {
	Layer    Layer
	Children []*TreeNode
}

// All mutating operations below return a new slice and leave their input
// untouched. On rejection the returned slice is a copy of the input and the
// error says why; the list itself is always valid.

func cloneLayers(layers []Layer) []Layer {
	out := make([]Layer, len(layers))
	copy(out, layers)
	return out
}

func indexOf(layers []Layer, id string) int {
	for i := range layers {
		if layers[i].ID == id {
			return i
		}
	}
	return -1
}

// FindLayer returns the layer with the given id.
func FindLayer(layers []Layer, id string) (Layer, bool) {
	if i := indexOf(layers, id); i >= 0 {
		return layers[i], true
	}
	return Layer{}, false
}

// siblingIndexes returns the indexes of the layers whose parent is parentID,
// sorted by current order (base first at the root, ties by slice position).
func siblingIndexes(layers []Layer, parentID string) []int {
	var idx []int
	for i := range layers {
		if layers[i].Parent() == parentID {
			idx = append(idx, i)
		}
	}
	sortSiblings(layers, idx, parentID == "")
	return idx
}

func sortSiblings(layers []Layer, idx []int, root bool) {
	sort.SliceStable(idx, func(a, b int) bool {
		la, lb := layers[idx[a]], layers[idx[b]]
		if root && la.IsBase() != lb.IsBase() {
			return la.IsBase()
		}
		return la.Order < lb.Order
	})
}

// NormalizeOrder reassigns dense 0..n-1 orders within every parent bucket,
// keeping the existing relative order. Base layers sort first at the root.
func NormalizeOrder(layers []Layer) []Layer {
	out := cloneLayers(layers)
	buckets := make(map[string][]int)
	for i := range out {
		p := out[i].Parent()
		buckets[p] = append(buckets[p], i)
	}
	for parent, idx := range buckets {
		sortSiblings(out, idx, parent == "")
		for n, i := range idx {
			out[i].Order = n
		}
	}
	return out
}

// EnsureBaseInvariant pins the base layer's flags, detaches layers whose
// parent is missing, the base layer, or part of a parent cycle, and
// renormalizes order. It is idempotent.
func EnsureBaseInvariant(layers []Layer) []Layer {
	out := cloneLayers(layers)
	for i := range out {
		if out[i].IsBase() {
			out[i].Locked = true
			out[i].Visible = true
			out[i].ParentID = nil
			out[i].Name = BaseLayerName
		}
	}
	repairParents(out)
	return NormalizeOrder(out)
}

// repairParents resets dangling or cyclic parent references to the root in place.
func repairParents(layers []Layer) {
	byID := make(map[string]int, len(layers))
	for i := range layers {
		byID[layers[i].ID] = i
	}
	for i := range layers {
		p := layers[i].Parent()
		if p == "" {
			continue
		}
		pi, ok := byID[p]
		if !ok || layers[pi].IsBase() || p == layers[i].ID {
			layers[i].ParentID = nil
		}
	}
	for i := range layers {
		if inCycle(layers, byID, i) {
			layers[i].ParentID = nil
		}
	}
}

func inCycle(layers []Layer, byID map[string]int, start int) bool {
	seen := map[int]bool{start: true}
	cur := start
	for {
		p := layers[cur].Parent()
		if p == "" {
			return false
		}
		next, ok := byID[p]
		if !ok {
			return false
		}
		if next == start {
			return true
		}
		if seen[next] {
			// a loop further up that does not include start
			return false
		}
		seen[next] = true
		cur = next
	}
}

// isAncestor reports whether ancestorID appears on the parent chain of id.
func isAncestor(layers []Layer, ancestorID, id string) bool {
	seen := make(map[string]bool)
	cur := id
	for cur != "" && !seen[cur] {
		seen[cur] = true
		i := indexOf(layers, cur)
		if i < 0 {
			return false
		}
		p := layers[i].Parent()
		if p == ancestorID {
			return true
		}
		cur = p
	}
	return false
}

// Descendants returns the ids of every layer below id, breadth first.
func Descendants(layers []Layer, id string) []string {
	children := make(map[string][]string)
	for _, l := range layers {
		if p := l.Parent(); p != "" {
			children[p] = append(children[p], l.ID)
		}
	}
	var out []string
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range children[cur] {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// validateParent checks that parentID can receive children.
func validateParent(layers []Layer, parentID string) error {
	if parentID == "" {
		return nil
	}
	i := indexOf(layers, parentID)
	if i < 0 {
		return ErrParentNotFound
	}
	if layers[i].IsBase() {
		return ErrBaseLayer
	}
	if !layers[i].IsGroup() {
		return ErrNotGroup
	}
	return nil
}

func parentPtr(parentID string) *string {
	if parentID == "" {
		return nil
	}
	return strPtr(parentID)
}

// BuildTree builds the parent/child view of layers. Layers with a missing or
// cyclic parent are attached to the root. Children are sorted by order.
func BuildTree(layers []Layer) []*TreeNode {
	fixed := cloneLayers(layers)
	repairParents(fixed)

	nodes := make(map[string]*TreeNode, len(fixed))
	for _, l := range fixed {
		nodes[l.ID] = &TreeNode{Layer: l}
	}
	var roots []*TreeNode
	for _, l := range fixed {
		n := nodes[l.ID]
		if p := l.Parent(); p != "" {
			nodes[p].Children = append(nodes[p].Children, n)
			continue
		}
		roots = append(roots, n)
	}

	sortNodes(roots, true)
	for _, n := range nodes {
		sortNodes(n.Children, false)
	}
	return roots
}

func sortNodes(nodes []*TreeNode, root bool) {
	sort.SliceStable(nodes, func(a, b int) bool {
		la, lb := nodes[a].Layer, nodes[b].Layer
		if root && la.IsBase() != lb.IsBase() {
			return la.IsBase()
		}
		return la.Order < lb.Order
	})
}

// FlattenForRender walks the tree depth first in paint order (bottom to top),
// emitting each visible layer before its children. Groups are walked but not
// emitted; hidden layers hide their whole subtree. The base layer is always
// emitted, whatever its stored flag says.
func FlattenForRender(layers []Layer) []Layer {
	var out []Layer
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		if n.Layer.IsBase() {
			n.Layer.Visible = true
		}
		if !n.Layer.Visible {
			return
		}
		if !n.Layer.IsGroup() {
			out = append(out, n.Layer)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range BuildTree(layers) {
		walk(r)
	}
	return out
}

// paintRank maps every layer id to its depth-first paint position,
// groups included.
func paintRank(layers []Layer) map[string]int {
	rank := make(map[string]int, len(layers))
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		rank[n.Layer.ID] = len(rank)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range BuildTree(layers) {
		walk(r)
	}
	return rank
}

// placeSiblings assigns dense orders to ids in the given sequence.
func placeSiblings(layers []Layer, seq []int) {
	for n, i := range seq {
		layers[i].Order = n
	}
}

// MoveLayer reparents layerID under targetParentID ("" for the root) at the
// clamped targetIndex among its new siblings.
func MoveLayer(layers []Layer, layerID, targetParentID string, targetIndex int) ([]Layer, error) {
	i := indexOf(layers, layerID)
	if i < 0 {
		return cloneLayers(layers), ErrLayerNotFound
	}
	if layers[i].IsBase() {
		return cloneLayers(layers), ErrBaseLayer
	}
	if err := validateParent(layers, targetParentID); err != nil {
		return cloneLayers(layers), err
	}
	if targetParentID == layerID || isAncestor(layers, layerID, targetParentID) {
		return cloneLayers(layers), ErrCycle
	}

	out := NormalizeOrder(layers)
	out[i].ParentID = parentPtr(targetParentID)

	var seq []int
	for _, s := range siblingIndexes(out, targetParentID) {
		if s != i {
			seq = append(seq, s)
		}
	}
	targetIndex = max(0, min(targetIndex, len(seq)))
	seq = slices.Insert(seq, targetIndex, i)
	placeSiblings(out, seq)

	return EnsureBaseInvariant(out), nil
}

// GroupLayers wraps the given layers in a new group and returns its id.
// Layers already covered by another selected ancestor move with it. The new
// group sits at the slot of the lowest selected layer when all share a
// parent, otherwise on top of the root.
func GroupLayers(layers []Layer, layerIDs []string, newID IDFactory) ([]Layer, string, error) {
	var picked []string
	seen := make(map[string]bool)
	for _, id := range layerIDs {
		i := indexOf(layers, id)
		if i < 0 || layers[i].IsBase() || seen[id] {
			continue
		}
		seen[id] = true
		picked = append(picked, id)
	}
	var selected []string
	for _, id := range picked {
		covered := false
		for _, other := range picked {
			if other != id && isAncestor(layers, other, id) {
				covered = true
				break
			}
		}
		if !covered {
			selected = append(selected, id)
		}
	}
	if len(selected) < 2 {
		return cloneLayers(layers), "", ErrTooFewLayers
	}

	out := NormalizeOrder(layers)
	first, _ := FindLayer(out, selected[0])
	shared := allShareParent(out, selected, first.Parent())
	commonParent := ""
	if shared {
		commonParent = first.Parent()
	}
	anyVisible := false
	for _, id := range selected {
		l, _ := FindLayer(out, id)
		anyVisible = anyVisible || l.Visible
	}

	groupID := newID()
	group := Layer{
		ID:        groupID,
		Name:      "Group",
		Type:      LayerTypeGroup,
		Visible:   anyVisible,
		ParentID:  parentPtr(commonParent),
		Transform: first.Transform,
	}
	out = append(out, group)
	gi := len(out) - 1

	inSel := make(map[string]bool, len(selected))
	for _, id := range selected {
		inSel[id] = true
	}

	// Slot the group among its new siblings.
	var seq []int
	placed := false
	for _, s := range siblingIndexes(out, commonParent) {
		if s == gi {
			continue
		}
		if inSel[out[s].ID] {
			if shared && !placed {
				seq = append(seq, gi)
				placed = true
			}
			continue
		}
		seq = append(seq, s)
	}
	if !placed {
		seq = append(seq, gi)
	}
	placeSiblings(out, seq)

	// Members keep their paint order inside the group.
	rank := paintRank(layers)
	members := append([]string(nil), selected...)
	sort.SliceStable(members, func(a, b int) bool { return rank[members[a]] < rank[members[b]] })
	for n, id := range members {
		mi := indexOf(out, id)
		out[mi].ParentID = strPtr(groupID)
		out[mi].Order = n
	}

	out, _ = CascadeVisibility(out, groupID, anyVisible)
	return EnsureBaseInvariant(out), groupID, nil
}

func allShareParent(layers []Layer, ids []string, parentID string) bool {
	for _, id := range ids {
		if l, ok := FindLayer(layers, id); !ok || l.Parent() != parentID {
			return false
		}
	}
	return true
}

// UngroupLayer moves a group's direct children into the group's slot under
// its own parent, then deletes the group.
func UngroupLayer(layers []Layer, groupID string) ([]Layer, error) {
	gi := indexOf(layers, groupID)
	if gi < 0 {
		return cloneLayers(layers), ErrLayerNotFound
	}
	if !layers[gi].IsGroup() {
		return cloneLayers(layers), ErrNotGroup
	}

	out := NormalizeOrder(layers)
	parent := out[gi].Parent()
	children := siblingIndexes(out, groupID)

	var seq []int
	for _, s := range siblingIndexes(out, parent) {
		if s == gi {
			seq = append(seq, children...)
			continue
		}
		seq = append(seq, s)
	}
	for _, c := range children {
		out[c].ParentID = parentPtr(parent)
	}
	placeSiblings(out, seq)

	out = append(out[:gi], out[gi+1:]...)
	return EnsureBaseInvariant(out), nil
}

// CascadeVisibility sets visibility on rootID and, for groups, on every
// descendant. The base layer cannot be hidden.
func CascadeVisibility(layers []Layer, rootID string, visible bool) ([]Layer, error) {
	i := indexOf(layers, rootID)
	if i < 0 {
		return cloneLayers(layers), ErrLayerNotFound
	}
	if layers[i].IsBase() && !visible {
		return cloneLayers(layers), ErrBaseLayer
	}

	out := cloneLayers(layers)
	out[i].Visible = visible
	if out[i].IsGroup() {
		for _, id := range Descendants(out, rootID) {
			out[indexOf(out, id)].Visible = visible
		}
	}
	return EnsureBaseInvariant(out), nil
}

// copyName appends " copy" without stacking suffixes.
func copyName(name string) string {
	base := strings.TrimSpace(name)
	if base == "copy" {
		return base
	}
	base = strings.TrimSuffix(base, " copy")
	return strings.TrimSpace(base + " copy")
}

// DuplicateBranch deep-clones layerID and its subtree with fresh ids and
// places the clone directly above the original. It returns the clone's id.
func DuplicateBranch(layers []Layer, layerID string, newID IDFactory) ([]Layer, string, error) {
	i := indexOf(layers, layerID)
	if i < 0 {
		return cloneLayers(layers), "", ErrLayerNotFound
	}
	if layers[i].IsBase() {
		return cloneLayers(layers), "", ErrBaseLayer
	}

	out := NormalizeOrder(layers)
	orig := out[i]
	for j := range out {
		if out[j].Parent() == orig.Parent() && out[j].Order > orig.Order {
			out[j].Order++
		}
	}

	branch := append([]string{layerID}, Descendants(out, layerID)...)
	ids := make(map[string]string, len(branch))
	for _, id := range branch {
		ids[id] = newID()
	}
	for _, id := range branch {
		clone, _ := FindLayer(out, id)
		clone.ID = ids[id]
		if id == layerID {
			clone.Name = copyName(clone.Name)
			clone.Order = orig.Order + 1
		} else if p, ok := ids[clone.Parent()]; ok {
			clone.ParentID = strPtr(p)
		}
		out = append(out, clone)
	}
	return EnsureBaseInvariant(out), ids[layerID], nil
}

// RemoveBranch deletes layerID and every descendant.
func RemoveBranch(layers []Layer, layerID string) ([]Layer, error) {
	i := indexOf(layers, layerID)
	if i < 0 {
		return cloneLayers(layers), ErrLayerNotFound
	}
	if layers[i].IsBase() {
		return cloneLayers(layers), ErrBaseLayer
	}

	doomed := map[string]bool{layerID: true}
	for _, id := range Descendants(layers, layerID) {
		doomed[id] = true
	}
	out := make([]Layer, 0, len(layers)-len(doomed))
	for _, l := range layers {
		if !doomed[l.ID] {
			out = append(out, l)
		}
	}
	return EnsureBaseInvariant(out), nil
}

// AddLayer inserts layer on top of parentID's children.
func AddLayer(layers []Layer, layer Layer, parentID string) ([]Layer, error) {
	if layer.IsBase() {
		return cloneLayers(layers), ErrBaseLayer
	}
	if layer.ID == "" || indexOf(layers, layer.ID) >= 0 {
		return cloneLayers(layers), ErrDuplicateID
	}
	if err := validateParent(layers, parentID); err != nil {
		return cloneLayers(layers), err
	}

	out := NormalizeOrder(layers)
	layer.ParentID = parentPtr(parentID)
	layer.Order = len(siblingIndexes(out, parentID))
	out = append(out, layer)
	return EnsureBaseInvariant(out), nil
}

// SetLocked toggles the lock flag of a non-base layer.
func SetLocked(layers []Layer, layerID string, locked bool) ([]Layer, error) {
	return updateLayer(layers, layerID, func(l *Layer) { l.Locked = locked })
}

// RenameLayer renames a non-base layer.
func RenameLayer(layers []Layer, layerID, name string) ([]Layer, error) {
	return updateLayer(layers, layerID, func(l *Layer) { l.Name = name })
}

// SetCollapsed records the UI collapsed state of a group.
func SetCollapsed(layers []Layer, layerID string, collapsed bool) ([]Layer, error) {
	if l, ok := FindLayer(layers, layerID); ok && !l.IsBase() && !l.IsGroup() {
		return cloneLayers(layers), ErrNotGroup
	}
	return updateLayer(layers, layerID, func(l *Layer) { l.Collapsed = collapsed })
}

func updateLayer(layers []Layer, layerID string, fn func(*Layer)) ([]Layer, error) {
	i := indexOf(layers, layerID)
	if i < 0 {
		return cloneLayers(layers), ErrLayerNotFound
	}
	if layers[i].IsBase() {
		return cloneLayers(layers), ErrBaseLayer
	}
	out := cloneLayers(layers)
	fn(&out[i])
	return EnsureBaseInvariant(out), nil
}

// ApplyTransforms replaces the transform of every listed layer.
// Unknown ids are skipped.
func ApplyTransforms(layers []Layer, updates map[string]Transform) []Layer {
	out := cloneLayers(layers)
	for i := range out {
		if t, ok := updates[out[i].ID]; ok && !out[i].IsBase() {
			out[i].Transform = t
		}
	}
	return out
}
