package orderbook

// Red-black tree keyed by decimal price, used to keep one side of a ladder
// (bids or asks) in sorted order with O(log n) insert/delete and O(1)
// access to the best price via cached min/max pointers.
//
// Properties:
// 1. Every node is either red or black
// 2. The root is always black
// 3. Red nodes cannot have red children
// 4. Every path from root to nil has the same number of black nodes

import "github.com/shopspring/decimal"

type color bool

const (
	red   color = true
	black color = false
)

// rbNode is a node in the red-black tree.
type rbNode struct {
	price  decimal.Decimal
	level  *level
	color  color
	left   *rbNode
	right  *rbNode
	parent *rbNode
}

// rbTree is a red-black tree keyed by decimal price.
type rbTree struct {
	root       *rbNode
	size       int
	minNode    *rbNode // cached for O(1) best-price access
	maxNode    *rbNode
	descending bool // true for bids: "best" is the maximum price
}

func newRBTree(descending bool) *rbTree {
	return &rbTree{descending: descending}
}

func (t *rbTree) Size() int    { return t.size }
func (t *rbTree) IsEmpty() bool { return t.size == 0 }

// Best returns the best-priced level (max for bids, min for asks).
func (t *rbTree) Best() *level {
	if t.descending {
		if t.maxNode == nil {
			return nil
		}
		return t.maxNode.level
	}
	if t.minNode == nil {
		return nil
	}
	return t.minNode.level
}

func (t *rbTree) Get(price decimal.Decimal) *level {
	node := t.search(price)
	if node == nil {
		return nil
	}
	return node.level
}

// Upsert sets the level at the given price, inserting a new node if the
// price isn't already present.
func (t *rbTree) Upsert(lvl *level) {
	newNode := &rbNode{price: lvl.Price, level: lvl, color: red}

	if t.root == nil {
		newNode.color = black
		t.root = newNode
		t.minNode = newNode
		t.maxNode = newNode
		t.size = 1
		return
	}

	var parent *rbNode
	current := t.root
	for current != nil {
		parent = current
		switch lvl.Price.Cmp(current.price) {
		case -1:
			current = current.left
		case 1:
			current = current.right
		default:
			current.level = lvl
			return
		}
	}

	newNode.parent = parent
	if lvl.Price.Cmp(parent.price) < 0 {
		parent.left = newNode
	} else {
		parent.right = newNode
	}
	t.size++

	if t.minNode == nil || lvl.Price.Cmp(t.minNode.price) < 0 {
		t.minNode = newNode
	}
	if t.maxNode == nil || lvl.Price.Cmp(t.maxNode.price) > 0 {
		t.maxNode = newNode
	}

	t.insertFixup(newNode)
}

// Delete removes the level at price, if present.
func (t *rbTree) Delete(price decimal.Decimal) {
	node := t.search(price)
	if node == nil {
		return
	}
	t.size--

	if node == t.minNode {
		t.minNode = t.successor(node)
	}
	if node == t.maxNode {
		t.maxNode = t.predecessor(node)
	}
	t.deleteNode(node)
}

// ForEach iterates in best-first order (descending for bids, ascending
// for asks), stopping early if fn returns false.
func (t *rbTree) ForEach(fn func(*level) bool) {
	if t.descending {
		t.reverseInOrder(t.root, fn)
	} else {
		t.inOrder(t.root, fn)
	}
}

func (t *rbTree) search(price decimal.Decimal) *rbNode {
	current := t.root
	for current != nil {
		switch price.Cmp(current.price) {
		case -1:
			current = current.left
		case 1:
			current = current.right
		default:
			return current
		}
	}
	return nil
}

func (t *rbTree) inOrder(node *rbNode, fn func(*level) bool) bool {
	if node == nil {
		return true
	}
	if !t.inOrder(node.left, fn) {
		return false
	}
	if !fn(node.level) {
		return false
	}
	return t.inOrder(node.right, fn)
}

func (t *rbTree) reverseInOrder(node *rbNode, fn func(*level) bool) bool {
	if node == nil {
		return true
	}
	if !t.reverseInOrder(node.right, fn) {
		return false
	}
	if !fn(node.level) {
		return false
	}
	return t.reverseInOrder(node.left, fn)
}

func (t *rbTree) successor(node *rbNode) *rbNode {
	if node.right != nil {
		current := node.right
		for current.left != nil {
			current = current.left
		}
		return current
	}
	parent := node.parent
	for parent != nil && node == parent.right {
		node = parent
		parent = parent.parent
	}
	return parent
}

func (t *rbTree) predecessor(node *rbNode) *rbNode {
	if node.left != nil {
		current := node.left
		for current.right != nil {
			current = current.right
		}
		return current
	}
	parent := node.parent
	for parent != nil && node == parent.left {
		node = parent
		parent = parent.parent
	}
	return parent
}

func (t *rbTree) rotateLeft(x *rbNode) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *rbTree) rotateRight(x *rbNode) {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	y.parent = x.parent
	if x.parent == nil {
		t.root = y
	} else if x == x.parent.right {
		x.parent.right = y
	} else {
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

func (t *rbTree) insertFixup(z *rbNode) {
	for z.parent != nil && z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y != nil && y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.rotateLeft(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rotateRight(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y != nil && y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rotateRight(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rotateLeft(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *rbTree) transplant(u, v *rbNode) {
	if u.parent == nil {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	if v != nil {
		v.parent = u.parent
	}
}

func (t *rbTree) deleteNode(z *rbNode) {
	var x, xParent *rbNode
	y := z
	yOriginalColor := y.color

	if z.left == nil {
		x = z.right
		xParent = z.parent
		t.transplant(z, z.right)
	} else if z.right == nil {
		x = z.left
		xParent = z.parent
		t.transplant(z, z.left)
	} else {
		y = z.right
		for y.left != nil {
			y = y.left
		}
		yOriginalColor = y.color
		x = y.right
		if y.parent == z {
			xParent = y
		} else {
			xParent = y.parent
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yOriginalColor == black {
		t.deleteFixup(x, xParent)
	}
}

func (t *rbTree) deleteFixup(x *rbNode, xParent *rbNode) {
	for x != t.root && (x == nil || x.color == black) {
		if x == xParent.left {
			w := xParent.right
			if w != nil && w.color == red {
				w.color = black
				xParent.color = red
				t.rotateLeft(xParent)
				w = xParent.right
			}
			if w == nil || ((w.left == nil || w.left.color == black) && (w.right == nil || w.right.color == black)) {
				if w != nil {
					w.color = red
				}
				x = xParent
				xParent = x.parent
			} else {
				if w.right == nil || w.right.color == black {
					if w.left != nil {
						w.left.color = black
					}
					w.color = red
					t.rotateRight(w)
					w = xParent.right
				}
				w.color = xParent.color
				xParent.color = black
				if w.right != nil {
					w.right.color = black
				}
				t.rotateLeft(xParent)
				x = t.root
			}
		} else {
			w := xParent.left
			if w != nil && w.color == red {
				w.color = black
				xParent.color = red
				t.rotateRight(xParent)
				w = xParent.left
			}
			if w == nil || ((w.right == nil || w.right.color == black) && (w.left == nil || w.left.color == black)) {
				if w != nil {
					w.color = red
				}
				x = xParent
				xParent = x.parent
			} else {
				if w.left == nil || w.left.color == black {
					if w.right != nil {
						w.right.color = black
					}
					w.color = red
					t.rotateLeft(w)
					w = xParent.left
				}
				w.color = xParent.color
				xParent.color = black
				if w.left != nil {
					w.left.color = black
				}
				t.rotateRight(xParent)
				x = t.root
			}
		}
	}
	if x != nil {
		x.color = black
	}
}
