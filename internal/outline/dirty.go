package outline

// SetDirty marks p's vnode dirty and propagates to every @file-family
// ancestor reachable through parent links. It returns the vnodes whose bit
// changed from clean to dirty.
func (p *Position) SetDirty() []*VNode {
	if p.v == nil {
		return nil
	}
	var dirty []*VNode
	if !p.v.IsDirty() {
		p.v.SetDirty()
		dirty = append(dirty, p.v)
	}
	// Runs even when p.v was already dirty: an edit can change which
	// ancestors are @file nodes.
	return append(dirty, p.SetAllAncestorAtFileNodesDirty()...)
}

// SetAllAncestorAtFileNodesDirty dirties the clean @file-family vnodes in
// the parent closure of p's vnode and returns them.
func (p *Position) SetAllAncestorAtFileNodesDirty() []*VNode {
	if p.v == nil {
		return nil
	}
	return p.v.SetAllAncestorAtFileNodesDirty()
}

// FindAllPotentiallyDirtyNodes returns the parent closure of p's vnode.
func (p *Position) FindAllPotentiallyDirtyNodes() []*VNode {
	if p.v == nil {
		return nil
	}
	return p.v.FindAllPotentiallyDirtyNodes()
}

// SetAllAncestorAtFileNodesDirty is the vnode form of the position method.
func (v *VNode) SetAllAncestorAtFileNodesDirty() []*VNode {
	var dirty []*VNode
	for _, w := range v.FindAllPotentiallyDirtyNodes() {
		if w.IsAnyAtFileNode() && !w.IsDirty() {
			w.SetDirty()
			dirty = append(dirty, w)
		}
	}
	return dirty
}
